package core

import (
	"fmt"
	"io"
	"strings"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// DecryptParams locate the pad segment of a ciphertext.
type DecryptParams struct {
	PadID  string
	Start  int64
	Length int64

	// Hash is the expected hex SHA-256 of the ciphertext.
	// An empty hash skips the integrity check.
	Hash string
}

// Decrypt XORs the ciphertext from src with the pad segment and writes the
// plaintext to dst.
//
// If a hash is given, the whole ciphertext is hashed first and src is rewound.
// A mismatch returns an *IntegrityError before any pad byte is read.
// The segment is recorded as used (idempotent) and the state is saved.
func Decrypt(l vault.Layout, st *vault.State, dst io.Writer, src io.ReadSeeker, prm DecryptParams) error {
	opErr := &OpError{Op: "decrypt", PadID: prm.PadID, Start: prm.Start, Length: prm.Length}

	// input validation
	if err := validateParams(prm); err != nil {
		opErr.Err = err
		return opErr
	}

	// integrity gate
	if prm.Hash != "" {
		if err := CheckIntegrity(src, prm.Hash); err != nil {
			log.Errorf("%s/Decrypt: %v", packageName, err)
			opErr.Err = err
			return opErr
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			log.Errorf("%s/Decrypt: rewind: %v", packageName, err)
			opErr.Err = err
			return opErr
		}
		log.Debugf("%s/Decrypt: ciphertext hash verified", packageName)
	}

	// pad
	p, err := st.Pad(prm.PadID)
	if err != nil {
		log.Errorf("%s/Decrypt: %v", packageName, err)
		opErr.Err = err
		return opErr
	}

	// a recorded segment is fine (same message again),
	// a partial overlap would break the ledger
	end := prm.Start + prm.Length
	known := p.HasSegment(prm.Start, end)
	if !known {
		if err := p.CheckSegment(prm.Start, prm.Length); err != nil {
			log.Errorf("%s/Decrypt: %v", packageName, err)
			opErr.Err = err
			return opErr
		}
	}

	// pad material
	segment, err := readSegment(l, p, prm.Start, prm.Length)
	if err != nil {
		opErr.Err = err
		return opErr
	}

	// cipher pass
	res, err := enc.Crypt(dst, src, segment, false)
	if err != nil {
		log.Errorf("%s/Decrypt: pad '%s' [%d, %d): %v", packageName, p.ID, prm.Start, end, err)
		opErr.Err = err
		return opErr
	}
	if res.N != prm.Length {
		log.Warnf("%s/Decrypt: ciphertext has %d bytes, segment has %d", packageName, res.N, prm.Length)
	}

	// ledger
	if known || prm.Length == 0 {
		log.Debugf("%s/Decrypt: pad '%s' [%d, %d) already recorded", packageName, p.ID, prm.Start, end)
		return nil
	}
	if _, err := commit(l, st, p, prm.Start, end, true); err != nil {
		opErr.Err = notPersisted(err)
		return opErr
	}

	log.Infof("%s/Decrypt: %d bytes with pad '%s' [%d, %d)", packageName, res.N, p.ID, prm.Start, end)
	return nil
}

// CheckIntegrity compares the SHA-256 of r with the expected hex hash.
// It reads r to the end and touches no pad material.
func CheckIntegrity(r io.Reader, expected string) error {
	actual, _, err := enc.HashReader(r)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return &IntegrityError{Expected: strings.ToLower(expected), Actual: actual}
	}
	return nil
}

// validateParams checks metadata values that can't be right.
func validateParams(prm DecryptParams) error {
	if prm.PadID == "" {
		return fmt.Errorf("%w: empty pad id", ErrPadNotFound)
	}
	if prm.Start < 0 || prm.Length < 0 {
		return fmt.Errorf("%w: start=%d, length=%d", ErrInvalidLength, prm.Start, prm.Length)
	}
	return nil
}
