package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrPadNotFound is returned when a pad id is not part of the vault state.
	ErrPadNotFound = errors.New("pad not found")

	// ErrSegmentOverlap is returned when a requested segment intersects a used segment.
	// Reusing pad bytes breaks the one-time pad, so this is never a warning.
	ErrSegmentOverlap = errors.New("segment overlaps a used segment")

	// ErrSegmentOutOfBounds is returned when a requested segment ends behind the pad size.
	ErrSegmentOutOfBounds = errors.New("segment exceeds pad size")

	// ErrInvalidSegment is returned for negative offsets or lengths.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrStateIO is returned when the state file can't be read or written.
	ErrStateIO = errors.New("vault state i/o error")
)

// SegmentError describes a rejected segment request.
type SegmentError struct {
	PadID    string
	Start    int64
	End      int64
	Conflict *UsedSegment // the used segment hit by an overlap (optional)
	Err      error        // ErrSegmentOverlap, ErrSegmentOutOfBounds or ErrInvalidSegment
}

func (e *SegmentError) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("pad '%s': segment [%d, %d): %v [%d, %d)", e.PadID, e.Start, e.End, e.Err, e.Conflict.Start, e.Conflict.End)
	}
	return fmt.Sprintf("pad '%s': segment [%d, %d): %v", e.PadID, e.Start, e.End, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
