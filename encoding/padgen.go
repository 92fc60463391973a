package enc

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// GeneratePad creates a new pad file with size random bytes (crypto/rand).
// Existing files are NOT overwritten.
// The bytes are written to a temp file that is hard linked to path at the end,
// so there is never a half written pad at path.
func GeneratePad(path string, size int64) error {
	if size <= 0 {
		return fmt.Errorf("invalid pad size: %d", size)
	}

	// don't overwrite files
	if _, err := os.Stat(path); err == nil {
		return errors.New("file already exists")
	}

	// temp file in the target folder
	fh, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		log.Errorf("%s/GeneratePad: %v", packageName, err)
		return err
	}
	tmp := fh.Name()
	defer os.Remove(tmp)

	// random bytes
	n, err := io.CopyBuffer(fh, io.LimitReader(rand.Reader, size), make([]byte, 1024*1024))
	if err == nil && n != size {
		err = fmt.Errorf("can't create %d random bytes: %d", size, n)
	}
	if err == nil {
		err = fh.Sync()
	}
	if cErr := fh.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		log.Errorf("%s/GeneratePad: %v", packageName, err)
		return err
	}

	// 0400: pads are never changed
	if err := os.Chmod(tmp, 0400); err != nil {
		log.Errorf("%s/GeneratePad: %v", packageName, err)
		return err
	}
	// link fails if path exists (also if it was created in the meantime);
	// the deferred Remove drops the temp name
	if err := os.Link(tmp, path); err != nil {
		log.Errorf("%s/GeneratePad: %v", packageName, err)
		return err
	}

	log.Debugf("%s/GeneratePad: %d bytes written to '%s'", packageName, size, path)
	return nil
}
