package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// ToWriter serializes the state as indented JSON.
func ToWriter(st *State, w io.Writer) error {
	// input validation
	if st == nil {
		return fmt.Errorf("%w: state is nil", ErrStateIO)
	}
	if st.Pads == nil {
		st.Pads = make(map[string]Pad)
	}

	// encode
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		log.Errorf("%s/ToWriter: %v", packageName, err)
		return fmt.Errorf("%w: %v", ErrStateIO, err)
	}
	return nil
}

// Save writes the state file of a vault.
// The file is written next to the old one and renamed over it,
// so the old ledger survives a crash during the write.
func Save(root string, st *State) error {
	path := filepath.Join(root, StateFileName)

	// temp file in the same folder (rename must not cross devices)
	fh, err := os.CreateTemp(root, "."+StateFileName+".*")
	if err != nil {
		log.Errorf("%s/Save: %v", packageName, err)
		return fmt.Errorf("%w: %v", ErrStateIO, err)
	}
	tmp := fh.Name()
	defer os.Remove(tmp) // no effect after rename

	if err := ToWriter(st, fh); err != nil {
		_ = fh.Close()
		return err // logging in sub function
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		log.Errorf("%s/Save: sync: %v", packageName, err)
		return fmt.Errorf("%w: %v", ErrStateIO, err)
	}
	if err := fh.Close(); err != nil {
		log.Errorf("%s/Save: close: %v", packageName, err)
		return fmt.Errorf("%w: %v", ErrStateIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Errorf("%s/Save: rename: %v", packageName, err)
		return fmt.Errorf("%w: %v", ErrStateIO, err)
	}

	log.Tracef("%s/Save: %d pads written to '%s'", packageName, len(st.Pads), path)
	return nil
}

// ------------------------------------------------------------------------------------------------------------------ //

// Load reads the state file of a vault.
// No state file -> return empty state
func Load(root string) (*State, error) {
	path := filepath.Join(root, StateFileName)

	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("%s/Load: return empty state: %v", packageName, err)
			return NewState(), nil // NO ERROR! (warning)
		}
		log.Errorf("%s/Load: %v", packageName, err)
		return nil, fmt.Errorf("%w: %v", ErrStateIO, err)
	}
	defer fh.Close()

	return FromReader(fh)
}

// FromReader de-serializes a state.
func FromReader(r io.Reader) (*State, error) {
	st := NewState()
	if err := json.NewDecoder(r).Decode(st); err != nil {
		log.Errorf("%s/FromReader: %v", packageName, err)
		return nil, fmt.Errorf("%w: %v", ErrStateIO, err)
	}
	if st.Pads == nil {
		st.Pads = make(map[string]Pad)
	}

	// records written by older tools may miss the id or the segment list
	for id, p := range st.Pads {
		if p.ID == "" {
			p.ID = id
		}
		if p.UsedSegments == nil {
			p.UsedSegments = []UsedSegment{}
		}
		st.Pads[id] = p
	}
	return st, nil
}
