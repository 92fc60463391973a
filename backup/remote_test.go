package backup_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/SchnorcherSepp/otpvault/backup"
	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	impl "github.com/SchnorcherSepp/storage/defaultimpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyFile(t *testing.T) *enc.KeyFile {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, enc.CreateKeyFile(path))
	k, err := enc.LoadKeyFile(path)
	require.NoError(t, err)
	return k
}

func TestPushPull(t *testing.T) {
	service := impl.NewRamService(nil, impl.DebugOff)
	key := testKeyFile(t)
	st := testState()

	// nothing there
	_, err := backup.Pull(service, key, "home", nil)
	assert.True(t, errors.Is(err, backup.ErrNoSnapshot), err)

	// push twice: only one snapshot is kept
	require.NoError(t, backup.Push(service, key, "home", st))
	require.NoError(t, backup.Push(service, key, "home", st))
	_ = service.Update()
	assert.Len(t, service.Files().All(), 1)
	assert.Equal(t, key.SnapshotName("home"), service.Files().All()[0].Name())

	got, err := backup.Pull(service, key, "home", nil)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	// other vault name
	_, err = backup.Pull(service, key, "office", nil)
	assert.True(t, errors.Is(err, backup.ErrNoSnapshot), err)

	// nil checks
	assert.Error(t, backup.Push(nil, key, "home", st))
	_, err = backup.Pull(service, nil, "home", nil)
	assert.Error(t, err)
}

func TestPull_Stale(t *testing.T) {
	service := impl.NewRamService(nil, impl.DebugOff)
	key := testKeyFile(t)
	require.NoError(t, backup.Push(service, key, "home", testState()))

	// the local vault used more bytes since the push
	local := testState()
	p, _ := local.Pad("a")
	local.Put(p.WithSegment(40, 50))

	_, err := backup.Pull(service, key, "home", local)
	assert.True(t, errors.Is(err, backup.ErrStaleSnapshot), err)

	// same or less local usage is fine
	_, err = backup.Pull(service, key, "home", testState())
	assert.NoError(t, err)
}

func TestCheckNotStale(t *testing.T) {
	snapshot := testState()

	local := testState()
	local.AddPad("new", "new.pad", 5) // unknown but unused
	assert.NoError(t, backup.CheckNotStale(snapshot, local))

	p, _ := local.Pad("new")
	local.Put(p.WithSegment(0, 1))
	assert.True(t, errors.Is(backup.CheckNotStale(snapshot, local), backup.ErrStaleSnapshot))

	assert.NoError(t, backup.CheckNotStale(snapshot, nil))
}

func TestCheckNotStale_Segments(t *testing.T) {
	local := testState() // pad "a" uses [0,40)

	// same number of used bytes, other segment
	disjoint := vault.NewState()
	p := disjoint.AddPad("a", "a.pad", 100)
	disjoint.Put(p.WithSegment(40, 80))
	disjoint.AddPad("b", "b.pad", 10)
	err := backup.CheckNotStale(disjoint, local)
	assert.True(t, errors.Is(err, backup.ErrStaleSnapshot), err)

	// restoring it would hand out [0,40) again
	restored, _ := disjoint.Pad("a")
	off, ok := restored.FindAvailableSegment(40)
	require.True(t, ok)
	assert.Equal(t, int64(0), off)

	// the union of split segments covers the local one
	split := vault.NewState()
	p = split.AddPad("a", "a.pad", 100)
	split.Put(p.WithSegment(20, 40).WithSegment(0, 20).WithSegment(60, 70))
	assert.NoError(t, backup.CheckNotStale(split, local))

	// partly covered
	partly := vault.NewState()
	p = partly.AddPad("a", "a.pad", 100)
	partly.Put(p.WithSegment(0, 20).WithSegment(21, 40))
	assert.True(t, errors.Is(backup.CheckNotStale(partly, local), backup.ErrStaleSnapshot))
}
