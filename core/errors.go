package core

import (
	"errors"
	"fmt"

	"github.com/SchnorcherSepp/otpvault/vault"
)

// Sentinel errors for errors.Is() checks.
// Allocation errors of the vault package (vault.ErrPadNotFound, vault.ErrSegmentOverlap,
// vault.ErrSegmentOutOfBounds, vault.ErrStateIO) and enc.ErrInputTooLong are passed through.
var (
	// ErrPadNotFound is returned when a pad id is not part of the vault.
	ErrPadNotFound = vault.ErrPadNotFound

	// ErrNoSuitablePad is returned by automatic selection if no pad has enough contiguous space.
	ErrNoSuitablePad = errors.New("no pad with enough contiguous space")

	// ErrInsufficientSpace is returned if the selected pad has no free range of the requested length.
	ErrInsufficientSpace = errors.New("not enough contiguous space left in pad")

	// ErrPadFullyUsed is returned if a fully used pad is selected for encryption.
	ErrPadFullyUsed = errors.New("pad is fully used")

	// ErrIntegrityMismatch is returned if the ciphertext hash differs from the metadata.
	ErrIntegrityMismatch = errors.New("ciphertext hash does not match metadata")

	// ErrPadRead is returned if the pad segment can't be read (missing file, short read).
	ErrPadRead = errors.New("can't read pad segment")

	// ErrPadWrite is returned if a pad file can't be written (generate, import, export).
	ErrPadWrite = errors.New("can't write pad file")

	// ErrStateNotPersisted is returned if the cipher pass succeeded but the vault state
	// could not be saved. The output is valid, the ledger on disk is stale and
	// the vault must be reconciled before the pad is used again.
	ErrStateNotPersisted = errors.New("output written but vault state not persisted")

	// ErrSegmentBurned is returned if the cipher pass failed after ciphertext was written.
	// The segment is recorded as used anyway, so its bytes are never handed out again.
	ErrSegmentBurned = errors.New("cipher pass failed after output was written: segment burned")

	// ErrInvalidLength is returned for negative lengths.
	ErrInvalidLength = errors.New("invalid length")

	// ErrPadExists is returned if an imported pad id is already registered.
	ErrPadExists = errors.New("pad already exists")
)

// OpError records a failed vault operation with the segment it was working on.
type OpError struct {
	Op     string // encrypt, decrypt, take, mark
	PadID  string
	Start  int64
	Length int64
	Err    error
}

func (e *OpError) Error() string {
	if e.PadID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: pad '%s' [%d, %d): %v", e.Op, e.PadID, e.Start, e.Start+e.Length, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IntegrityError is returned by Decrypt if the ciphertext was modified.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: expected %s, got %s", ErrIntegrityMismatch, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityMismatch
}
