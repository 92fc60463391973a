package enc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"

	log "github.com/sirupsen/logrus"
)

// Result describes a finished cipher pass.
type Result struct {
	// N is the number of bytes written to the output.
	N int64
	// Hash is the hex SHA-256 of the output (empty if not requested).
	Hash string
}

// Crypt streams src XOR pad into dst in ChunkSize blocks.
// The pad must hold the whole segment. If withHash is set, the SHA-256
// of the produced output is computed in the same pass.
//
// If src yields more than len(pad) bytes, Crypt stops before writing the
// offending chunk and returns ErrInputTooLong. The returned Result always
// holds the number of bytes already written, also on errors.
func Crypt(dst io.Writer, src io.Reader, pad []byte, withHash bool) (Result, error) {
	var res Result
	var h hash.Hash
	if withHash {
		h = sha256.New()
	}

	// the PadReader does the XOR and the length guard
	pr := PadReader(src, pad)
	buf := make([]byte, ChunkSize)
	for {
		n, rErr := pr.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, err := dst.Write(chunk); err != nil {
				log.Errorf("%s/Crypt: write: %v", packageName, err)
				return res, err
			}
			if h != nil {
				h.Write(chunk)
			}
			res.N += int64(n)
		}

		if rErr == io.EOF {
			break
		}
		if errors.Is(rErr, ErrInputTooLong) {
			log.Errorf("%s/Crypt: input exceeds pad segment of %d bytes", packageName, len(pad))
			return res, rErr
		}
		if rErr != nil {
			log.Errorf("%s/Crypt: read: %v", packageName, rErr)
			return res, rErr
		}
	}

	if h != nil {
		res.Hash = hex.EncodeToString(h.Sum(nil))
	}
	return res, nil
}

// HashReader returns the hex SHA-256 of everything in r.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		log.Errorf("%s/HashReader: %v", packageName, err)
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
