package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// resolvePad returns the pad for an operation that needs length bytes.
//
// explicit: the pad must exist and must not be fully used.
// auto: the first pad (sorted by id) with a free range of length bytes.
// If offset is set, the pad must also accept [offset, offset+length).
func resolvePad(st *vault.State, sel PadSelector, length int64, offset *int64) (vault.Pad, error) {
	if id, ok := sel.Explicit(); ok {
		p, err := st.Pad(id)
		if err != nil {
			return p, err
		}
		if p.IsFullyUsed || p.Full() {
			return p, fmt.Errorf("%w: '%s'", ErrPadFullyUsed, id)
		}
		return p, nil
	}

	for _, id := range st.SortedIDs() {
		p, _ := st.Pad(id)
		if p.IsFullyUsed {
			continue
		}
		if offset != nil {
			if p.CheckSegment(*offset, length) == nil && !p.Full() {
				return p, nil
			}
			continue
		}
		if _, ok := p.FindAvailableSegment(length); ok {
			return p, nil
		}
	}
	return vault.Pad{}, fmt.Errorf("%w: %d bytes", ErrNoSuitablePad, length)
}

// resolveOffset validates an explicit offset or allocates the first free range.
func resolveOffset(p vault.Pad, length int64, offset *int64) (int64, error) {
	if offset != nil {
		if err := p.CheckSegment(*offset, length); err != nil {
			return 0, err
		}
		return *offset, nil
	}

	start, ok := p.FindAvailableSegment(length)
	if !ok {
		return 0, fmt.Errorf("%w: pad '%s' has no free range of %d bytes (%d bytes left in total)",
			ErrInsufficientSpace, p.ID, length, p.Remaining())
	}
	return start, nil
}

// readSegment reads exactly length bytes at start from the backing file of the pad.
func readSegment(l vault.Layout, p vault.Pad, start, length int64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}

	path, err := l.Locate(p)
	if err != nil {
		log.Errorf("%s/readSegment: %v", packageName, err)
		return nil, fmt.Errorf("%w: %v", ErrPadRead, err)
	}

	checkFreeRam(length)

	fh, err := os.Open(path)
	if err != nil {
		log.Errorf("%s/readSegment: %v", packageName, err)
		return nil, fmt.Errorf("%w: %v", ErrPadRead, err)
	}
	defer fh.Close()

	buf := make([]byte, length)
	n, err := fh.ReadAt(buf, start)
	if int64(n) != length {
		log.Errorf("%s/readSegment: short read from '%s': %d of %d bytes: %v", packageName, path, n, length, err)
		return nil, fmt.Errorf("%w: '%s' [%d, %d): got %d bytes", ErrPadRead, path, start, start+length, n)
	}

	log.Debugf("%s/readSegment: pad '%s' [%d, %d)", packageName, p.ID, start, start+length)
	return buf, nil
}

// commit records [start, end) for the pad and persists the state.
// The in-memory state is only replaced after a successful save, except for
// spent segments (output already written): these are kept in memory even if
// the save fails, so this process never hands them out again.
// A pad that becomes fully used by this segment is moved to the used area.
func commit(l vault.Layout, st *vault.State, p vault.Pad, start, end int64, spent bool) (vault.Pad, error) {
	updated := p.WithSegment(start, end)

	next := st.Clone()
	next.Put(updated)
	if err := vault.Save(l.Root, next); err != nil {
		log.Errorf("%s/commit: pad '%s' [%d, %d): %v", packageName, p.ID, start, end, err)
		if spent {
			st.Put(updated)
		}
		return p, err
	}
	st.Put(updated)

	// fully used transition
	if updated.IsFullyUsed && !p.IsFullyUsed {
		if err := l.Relocate(updated); err != nil {
			// the state is already saved and Locate checks both areas
			log.Errorf("%s/commit: pad '%s' stays in available area: %v", packageName, p.ID, err)
		}
	}
	return updated, nil
}

// notPersisted wraps a failed state save after a successful cipher pass.
func notPersisted(err error) error {
	if errors.Is(err, ErrStateNotPersisted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStateNotPersisted, err)
}
