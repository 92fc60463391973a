package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// GeneratePads creates count new random pads with size bytes each in the
// available area and registers them with a single state save.
// On errors, the pads created so far are still registered and returned.
func GeneratePads(l vault.Layout, st *vault.State, size int64, count int) ([]vault.Pad, error) {
	// input validation
	if size <= 0 || count <= 0 {
		return nil, fmt.Errorf("%w: size=%d, count=%d", ErrInvalidLength, size, count)
	}
	if err := os.MkdirAll(l.AvailableDir(), 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPadWrite, err)
	}

	next := st.Clone()
	created := make([]vault.Pad, 0, count)
	var genErr error

	for i := 0; i < count; i++ {
		id := uuid.NewString()
		fileName := id + vault.PadExt
		path := filepath.Join(l.AvailableDir(), fileName)

		if err := enc.GeneratePad(path, size); err != nil {
			log.Errorf("%s/GeneratePads: pad %d of %d: %v", packageName, i+1, count, err)
			genErr = fmt.Errorf("%w: '%s': %v", ErrPadWrite, path, err)
			break
		}
		created = append(created, next.AddPad(id, fileName, size))
		log.Debugf("%s/GeneratePads: pad '%s' with %d bytes", packageName, id, size)
	}

	// register
	if len(created) > 0 {
		if err := vault.Save(l.Root, next); err != nil {
			return created, err
		}
		for _, p := range created {
			st.Put(p)
		}
	}

	log.Infof("%s/GeneratePads: %d pads with %d bytes each", packageName, len(created), size)
	return created, genErr
}

// ImportPad copies an existing pad file into the available area.
// An empty id is derived from the file name (without '.pad').
func ImportPad(l vault.Layout, st *vault.State, srcPath, id string) (vault.Pad, error) {
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(srcPath), vault.PadExt)
	}
	if id == "" || id == "." || strings.ContainsAny(id, `/\`) {
		return vault.Pad{}, fmt.Errorf("invalid pad id: %q", id)
	}
	if _, err := st.Pad(id); err == nil {
		return vault.Pad{}, fmt.Errorf("%w: '%s'", ErrPadExists, id)
	}

	// copy
	fileName := id + vault.PadExt
	dst := filepath.Join(l.AvailableDir(), fileName)
	size, err := copyFile(dst, srcPath, 0400)
	if err != nil {
		log.Errorf("%s/ImportPad: %v", packageName, err)
		return vault.Pad{}, fmt.Errorf("%w: %v", ErrPadWrite, err)
	}
	if size == 0 {
		_ = os.Remove(dst)
		return vault.Pad{}, fmt.Errorf("%w: empty pad file '%s'", ErrInvalidLength, srcPath)
	}

	// register
	next := st.Clone()
	p := next.AddPad(id, fileName, size)
	if err := vault.Save(l.Root, next); err != nil {
		_ = os.Remove(dst)
		return vault.Pad{}, err
	}
	st.Put(p)

	log.Infof("%s/ImportPad: pad '%s' with %d bytes from '%s'", packageName, id, size, srcPath)
	return p, nil
}

// ExportPad copies the backing file of a pad to dstPath (a copy for the other party).
// Existing files are NOT overwritten.
func ExportPad(l vault.Layout, st *vault.State, id, dstPath string) error {
	p, err := st.Pad(id)
	if err != nil {
		return err
	}
	src, err := l.Locate(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPadRead, err)
	}
	n, err := copyFile(dstPath, src, 0400)
	if err != nil {
		log.Errorf("%s/ExportPad: %v", packageName, err)
		return fmt.Errorf("%w: %v", ErrPadWrite, err)
	}

	log.Infof("%s/ExportPad: pad '%s' (%d bytes) to '%s'", packageName, id, n, dstPath)
	return nil
}

// DeletePad removes the pad record and its backing file.
// A missing backing file is logged; the record is removed anyway.
func DeletePad(l vault.Layout, st *vault.State, id string) error {
	p, err := st.Pad(id)
	if err != nil {
		return err
	}

	next := st.Clone()
	next.RemovePad(id)
	if err := vault.Save(l.Root, next); err != nil {
		return err
	}
	st.RemovePad(id)

	path, err := l.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("%s/DeletePad: pad file of '%s' not found", packageName, id)
	} else if err != nil {
		return fmt.Errorf("pad '%s' removed from state, but file '%s' not deleted: %w", id, path, err)
	}

	log.Infof("%s/DeletePad: pad '%s' deleted", packageName, id)
	return nil
}

// ClearVault deletes all pads and resets the state.
// The state is saved first: an interrupted clear leaves orphan files, not dangling records.
func ClearVault(l vault.Layout, st *vault.State) (int, error) {
	old := st.Clone()

	if err := vault.Save(l.Root, vault.NewState()); err != nil {
		return 0, err
	}
	for _, id := range st.SortedIDs() {
		st.RemovePad(id)
	}

	removed := 0
	var firstErr error
	for _, id := range old.SortedIDs() {
		p, _ := old.Pad(id)
		if _, err := l.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Errorf("%s/ClearVault: %v", packageName, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}

	log.Infof("%s/ClearVault: %d pads removed", packageName, removed)
	return removed, firstErr
}

// ----------  HELPER  -----------------------------------------------------------------------------------------------//

// copyFile copies src to a new file dst (temp file + rename).
func copyFile(dst, src string, perm os.FileMode) (int64, error) {
	if _, err := os.Stat(dst); err == nil {
		return 0, fmt.Errorf("file '%s' already exists", dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return 0, err
	}
	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, err
	}
	tmp := out.Name()
	defer os.Remove(tmp) // no effect after rename

	n, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cErr := out.Close(); err == nil {
		err = cErr
	}
	if err == nil {
		err = os.Chmod(tmp, perm)
	}
	if err == nil {
		err = os.Rename(tmp, dst)
	}
	return n, err
}
