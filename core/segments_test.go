package core_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/SchnorcherSepp/otpvault/core"
	"github.com/SchnorcherSepp/otpvault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeSegment(t *testing.T) {
	pad := padBytes(30, 6)
	l, st := testVault(t, map[string][]byte{"p": pad})

	s1, err := core.TakeSegment(l, st, core.AutoSelect, 10)
	require.NoError(t, err)
	assert.Equal(t, "p", s1.PadID)
	assert.Equal(t, pad[:10], s1.Data)

	s2, err := core.TakeSegment(l, st, core.ExplicitPad("p"), 20)
	require.NoError(t, err)
	assert.Equal(t, int64(10), s2.Start)
	assert.Equal(t, int64(30), s2.End())
	assert.Equal(t, pad[10:], s2.Data)

	// fully used and moved
	p := loadPad(t, l, "p")
	assert.True(t, p.IsFullyUsed)
	assert.FileExists(t, l.UsedPath(p))

	_, err = core.TakeSegment(l, st, core.AutoSelect, 1)
	assert.True(t, errors.Is(err, core.ErrNoSuitablePad), err)
	_, err = core.TakeSegment(l, st, core.AutoSelect, 0)
	assert.True(t, errors.Is(err, core.ErrInvalidLength), err)
}

func TestMarkUsed(t *testing.T) {
	l, st := testVault(t, map[string][]byte{"p": padBytes(30, 6)})

	require.NoError(t, core.MarkUsed(l, st, "p", 10, 20))
	require.NoError(t, core.MarkUsed(l, st, "p", 10, 20)) // no-op
	assert.Equal(t, []vault.UsedSegment{{Start: 10, End: 20}}, loadPad(t, l, "p").UsedSegments)

	err := core.MarkUsed(l, st, "p", 15, 25)
	assert.True(t, errors.Is(err, vault.ErrSegmentOverlap), err)
	err = core.MarkUsed(l, st, "p", 25, 35)
	assert.True(t, errors.Is(err, vault.ErrSegmentOutOfBounds), err)
	err = core.MarkUsed(l, st, "x", 0, 1)
	assert.True(t, errors.Is(err, core.ErrPadNotFound), err)
}

func TestStatus(t *testing.T) {
	l, st := testVault(t, map[string][]byte{"a": padBytes(100, 0), "b": padBytes(10, 0)})
	require.NoError(t, core.MarkUsed(l, st, "a", 30, 40))
	require.NoError(t, core.MarkUsed(l, st, "b", 0, 10))

	vs := core.Status(l, st)
	assert.Equal(t, int64(110), vs.Total)
	assert.Equal(t, int64(20), vs.Used)
	assert.Equal(t, 1, vs.Available)
	assert.Equal(t, 1, vs.FullyUsed)
	assert.Equal(t, int64(60), vs.LargestUnused)

	require.Len(t, vs.Pads, 2)
	assert.Equal(t, "a", vs.Pads[0].ID)
	assert.InDelta(t, 10.0, vs.Pads[0].UsagePercent, 0.001)
	assert.Equal(t, int64(90), vs.Pads[0].Remaining)
	assert.True(t, vs.Pads[1].FullyUsed)
	assert.Equal(t, l.UsedPath(loadPad(t, l, "b")), vs.Pads[1].Path)
}

func TestLocker(t *testing.T) {
	l, st := testVault(t, map[string][]byte{"p": padBytes(1000, 0)})
	locker := core.NewLocker()

	// parallel allocations never overlap
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock(l.Root)
			defer unlock()
			_, err := core.TakeSegment(l, st, core.AutoSelect, 50)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p := loadPad(t, l, "p")
	assert.Len(t, p.UsedSegments, 10)
	assert.Equal(t, int64(500), p.TotalUsedBytes())
	for i, a := range p.UsedSegments {
		for _, b := range p.UsedSegments[i+1:] {
			assert.False(t, a.Overlaps(b))
		}
	}
}
