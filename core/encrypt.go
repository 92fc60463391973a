package core

import (
	"fmt"
	"io"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// EncryptOptions select the pad material for Encrypt.
type EncryptOptions struct {

	// Pad is AutoSelect or ExplicitPad(id).
	Pad PadSelector

	// Offset is the first pad byte to use.
	// nil means the first free range of the pad (first fit).
	Offset *int64
}

// Encrypt XORs length bytes from src with an unused pad segment and writes the
// ciphertext to dst. The segment is recorded and the state saved before the
// metadata is returned.
//
// Errors before any output was written leave the vault untouched.
// If the cipher pass fails after ciphertext was written, the segment is
// recorded anyway and the error wraps ErrSegmentBurned.
// If the cipher pass succeeded but the state can't be saved, the metadata is
// returned together with an error wrapping ErrStateNotPersisted.
func Encrypt(l vault.Layout, st *vault.State, dst io.Writer, src io.Reader, length int64, opt EncryptOptions) (Metadata, error) {
	opErr := &OpError{Op: "encrypt", Length: length}

	// input validation
	if length < 0 {
		opErr.Err = fmt.Errorf("%w: %d", ErrInvalidLength, length)
		return Metadata{}, opErr
	}

	// pad and offset
	p, err := resolvePad(st, opt.Pad, length, opt.Offset)
	if err != nil {
		log.Errorf("%s/Encrypt: select pad '%s': %v", packageName, opt.Pad, err)
		opErr.Err = err
		return Metadata{}, opErr
	}
	opErr.PadID = p.ID

	start, err := resolveOffset(p, length, opt.Offset)
	if err != nil {
		log.Errorf("%s/Encrypt: %v", packageName, err)
		opErr.Err = err
		return Metadata{}, opErr
	}
	opErr.Start = start

	// pad material
	segment, err := readSegment(l, p, start, length)
	if err != nil {
		opErr.Err = err
		return Metadata{}, opErr
	}

	// cipher pass
	res, err := enc.Crypt(dst, src, segment, true)
	if err == nil && res.N != length {
		err = fmt.Errorf("%w: input has %d of %d bytes", io.ErrUnexpectedEOF, res.N, length)
	}
	if err != nil {
		log.Errorf("%s/Encrypt: pad '%s' [%d, %d): %v", packageName, p.ID, start, start+length, err)
		if res.N > 0 {
			// ciphertext left the process: these pad bytes are gone
			if _, cErr := commit(l, st, p, start, start+length, true); cErr != nil {
				err = fmt.Errorf("%w: %w", err, notPersisted(cErr))
			}
			err = fmt.Errorf("%w: %w", ErrSegmentBurned, err)
		}
		opErr.Err = err
		return Metadata{}, opErr
	}

	meta := Metadata{
		PadID:          p.ID,
		StartByte:      start,
		Length:         length,
		CiphertextHash: res.Hash,
	}

	// nothing consumed
	if length == 0 {
		log.Debugf("%s/Encrypt: empty input, pad '%s' unchanged", packageName, p.ID)
		return meta, nil
	}

	// ledger
	if _, err := commit(l, st, p, start, start+length, true); err != nil {
		opErr.Err = notPersisted(err)
		return meta, opErr
	}

	log.Infof("%s/Encrypt: %d bytes with pad '%s' [%d, %d)", packageName, length, p.ID, start, start+length)
	return meta, nil
}

