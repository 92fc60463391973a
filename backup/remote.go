package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	interf "github.com/SchnorcherSepp/storage/interfaces"
	log "github.com/sirupsen/logrus"
)

// ErrNoSnapshot is returned by Pull if the storage has no snapshot of the vault.
var ErrNoSnapshot = errors.New("no snapshot found")

// ErrStaleSnapshot is returned by Pull if the snapshot misses used segments
// of the local state. Restoring it would hand out used pad bytes again.
var ErrStaleSnapshot = errors.New("snapshot is older than the local state")

// Push removes all old snapshots of the vault and uploads the new one.
// The storage file name is derived from the key file and the vault name (@see enc.KeyFile.SnapshotName).
func Push(service interf.Service, keyFile *enc.KeyFile, vaultName string, st *vault.State) error {
	if service == nil || keyFile == nil {
		return errors.New("service or key file is nil")
	}
	name := keyFile.SnapshotName(vaultName)
	log.Debugf("%s/Push: snapshot with %d pads", packageName, len(st.Pads))

	// first: encrypt (nothing is removed if this fails)
	buf := new(bytes.Buffer)
	if err := ToWriter(st, keyFile.SnapshotKey(), buf); err != nil {
		return err // logging in sub function
	}

	// secondly: remove all old snapshots
	if err := service.Update(); err != nil {
		log.Warnf("%s/Push: update: %v", packageName, err)
	}
	for _, f := range service.Files().All() {
		if f.Name() == name {
			if err := service.Trash(f); err != nil {
				log.Errorf("%s/Push: remove old snapshot '%s': %v", packageName, f.Id(), err)
				return err
			}
		}
	}

	// upload
	if _, err := service.Save(name, buf, 0); err != nil {
		log.Errorf("%s/Push: save snapshot: %v", packageName, err)
		return err
	}

	log.Infof("%s/Push: snapshot of '%s' uploaded", packageName, vaultName)
	return nil
}

// Pull downloads the snapshot of the vault.
// If local is not nil, the snapshot must know at least the used bytes of every
// local pad (ErrStaleSnapshot).
func Pull(service interf.Service, keyFile *enc.KeyFile, vaultName string, local *vault.State) (*vault.State, error) {
	if service == nil || keyFile == nil {
		return nil, errors.New("service or key file is nil")
	}
	name := keyFile.SnapshotName(vaultName)

	if err := service.Update(); err != nil {
		log.Warnf("%s/Pull: update: %v", packageName, err)
	}
	f, err := service.Files().ByName(name)
	if err != nil || f == nil {
		log.Errorf("%s/Pull: '%s': %v", packageName, vaultName, err)
		return nil, fmt.Errorf("%w: vault '%s'", ErrNoSnapshot, vaultName)
	}

	r, err := service.Reader(f, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Errorf("%s/Pull: %v", packageName, err)
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: empty snapshot file", ErrCorruptSnapshot)
	}
	defer r.Close()

	st, err := FromReader(r, keyFile.SnapshotKey())
	if err != nil {
		return nil, err
	}
	if err := CheckNotStale(st, local); err != nil {
		return nil, err
	}

	log.Infof("%s/Pull: snapshot of '%s' with %d pads", packageName, vaultName, len(st.Pads))
	return st, nil
}

// CheckNotStale requires that every used segment of a local pad is also
// used in the snapshot. Equal byte counts are not enough: a snapshot with
// other segments would free locally consumed bytes.
func CheckNotStale(snapshot, local *vault.State) error {
	if local == nil {
		return nil
	}
	for _, id := range local.SortedIDs() {
		lp, _ := local.Pad(id)
		sp, err := snapshot.Pad(id)
		if err != nil {
			if lp.TotalUsedBytes() == 0 {
				continue // unused local pad: the snapshot just doesn't know it
			}
			return fmt.Errorf("%w: pad '%s' is missing", ErrStaleSnapshot, id)
		}
		for _, seg := range lp.UsedSegments {
			if !covered(sp, seg) {
				return fmt.Errorf("%w: pad '%s' segment [%d, %d) is not used in the snapshot", ErrStaleSnapshot, id, seg.Start, seg.End)
			}
		}
	}
	return nil
}

// ----------  HELPER  -----------------------------------------------------------------------------------------------//

// covered reports whether the used segments of p (together) contain seg.
func covered(p vault.Pad, seg vault.UsedSegment) bool {
	if seg.Len() == 0 {
		return true
	}

	list := make([]vault.UsedSegment, len(p.UsedSegments))
	copy(list, p.UsedSegments)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Start < list[j].Start
	})

	pos := seg.Start // first byte not yet covered
	for _, s := range list {
		if s.Start > pos {
			break // gap
		}
		if s.End > pos {
			pos = s.End
		}
		if pos >= seg.End {
			return true
		}
	}
	return false
}
