package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Layout resolves the paths inside a vault directory.
//
//   <root>/vault_state.json
//   <root>/pads/available/<id>.pad
//   <root>/pads/used/<id>.pad
type Layout struct {
	Root string
}

// NewLayout returns the layout for a vault root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// Init creates the vault folders and an empty state file (if not exist).
func (l Layout) Init() error {
	for _, dir := range []string{l.Root, l.AvailableDir(), l.UsedDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Errorf("%s/Init: %v", packageName, err)
			return err
		}
	}

	// keep an existing state
	if _, err := os.Stat(l.StateFile()); err == nil {
		log.Infof("%s/Init: state file exists: '%s'", packageName, l.StateFile())
		return nil
	}
	return Save(l.Root, NewState())
}

// Exists checks the vault root folder.
func (l Layout) Exists() bool {
	st, err := os.Stat(l.Root)
	return err == nil && st.IsDir()
}

// StateFile is the path of the state ledger.
func (l Layout) StateFile() string {
	return filepath.Join(l.Root, StateFileName)
}

// AvailableDir is the folder for pads with unused bytes.
func (l Layout) AvailableDir() string {
	return filepath.Join(l.Root, PadDir, AvailableDir)
}

// UsedDir is the folder for fully used pads.
func (l Layout) UsedDir() string {
	return filepath.Join(l.Root, PadDir, UsedDir)
}

// AvailablePath is the backing file path of a pad in the available area.
func (l Layout) AvailablePath(p Pad) string {
	return filepath.Join(l.AvailableDir(), filepath.Base(p.FileName))
}

// UsedPath is the backing file path of a pad in the used area.
func (l Layout) UsedPath(p Pad) string {
	return filepath.Join(l.UsedDir(), filepath.Base(p.FileName))
}

// ExpectedPath is where the backing file should be according to the record.
func (l Layout) ExpectedPath(p Pad) string {
	if p.IsFullyUsed {
		return l.UsedPath(p)
	}
	return l.AvailablePath(p)
}

// Locate finds the backing file in either area.
// The expected area (@see ExpectedPath) is checked first.
func (l Layout) Locate(p Pad) (string, error) {
	first, second := l.AvailablePath(p), l.UsedPath(p)
	if p.IsFullyUsed {
		first, second = second, first
	}

	for _, path := range []string{first, second} {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("pad file '%s' not found in vault: %w", p.FileName, os.ErrNotExist)
}

// Relocate moves the backing file from the available area to the used area.
// A missing source or an already moved file is logged and ignored.
func (l Layout) Relocate(p Pad) error {
	src, dst := l.AvailablePath(p), l.UsedPath(p)

	// source check
	if _, err := os.Stat(src); err != nil {
		if _, err2 := os.Stat(dst); err2 == nil {
			log.Debugf("%s/Relocate: pad '%s' already in used area", packageName, p.ID)
		} else {
			log.Warnf("%s/Relocate: pad file '%s' not found: %v", packageName, p.FileName, err)
		}
		return nil
	}

	// move
	if err := os.MkdirAll(l.UsedDir(), 0700); err != nil {
		log.Errorf("%s/Relocate: %v", packageName, err)
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		log.Errorf("%s/Relocate: pad '%s': %v", packageName, p.ID, err)
		return err
	}

	log.Infof("%s/Relocate: pad '%s' is fully used and moved to '%s'", packageName, p.ID, dst)
	return nil
}

// Remove deletes the backing file from wherever it is.
// The returned error wraps os.ErrNotExist if there was no file.
func (l Layout) Remove(p Pad) (string, error) {
	path, err := l.Locate(p)
	if err != nil {
		return l.ExpectedPath(p), err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return path, err
		}
		log.Errorf("%s/Remove: %v", packageName, err)
		return path, err
	}
	return path, nil
}
