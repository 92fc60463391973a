package vault_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/SchnorcherSepp/otpvault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAvailableSegment_Scenario(t *testing.T) {
	p := vault.NewPad("a", "a.pad", 100)

	off, ok := p.FindAvailableSegment(40)
	require.True(t, ok)
	assert.Equal(t, int64(0), off)
	p = p.WithSegment(off, off+40)

	off, ok = p.FindAvailableSegment(40)
	require.True(t, ok)
	assert.Equal(t, int64(40), off)
	p = p.WithSegment(off, off+40)

	// only 20 bytes left
	_, ok = p.FindAvailableSegment(25)
	assert.False(t, ok)

	off, ok = p.FindAvailableSegment(20)
	require.True(t, ok)
	assert.Equal(t, int64(80), off)
}

func TestFindAvailableSegment_Gaps(t *testing.T) {
	p := vault.NewPad("a", "a.pad", 100)
	// unsorted on purpose
	p.UsedSegments = []vault.UsedSegment{{Start: 50, End: 60}, {Start: 10, End: 20}, {Start: 70, End: 100}}

	off, ok := p.FindAvailableSegment(10)
	require.True(t, ok)
	assert.Equal(t, int64(0), off, "gap before the first segment")

	off, ok = p.FindAvailableSegment(11)
	require.True(t, ok)
	assert.Equal(t, int64(20), off, "first gap that fits")

	_, ok = p.FindAvailableSegment(31)
	assert.False(t, ok)
}

func TestFindAvailableSegment_Malformed(t *testing.T) {
	p := vault.NewPad("a", "a.pad", 100)
	// overlapping records must not produce an overlapping answer
	p.UsedSegments = []vault.UsedSegment{{Start: 0, End: 60}, {Start: 10, End: 20}}

	off, ok := p.FindAvailableSegment(30)
	require.True(t, ok)
	assert.Equal(t, int64(60), off)
}

func TestFindAvailableSegment_EdgeCases(t *testing.T) {
	p := vault.NewPad("a", "a.pad", 10)

	off, ok := p.FindAvailableSegment(0)
	assert.True(t, ok)
	assert.Equal(t, int64(0), off)

	_, ok = p.FindAvailableSegment(-1)
	assert.False(t, ok)

	_, ok = p.FindAvailableSegment(11)
	assert.False(t, ok)

	p = p.WithSegment(0, 10)
	assert.True(t, p.IsFullyUsed)
	_, ok = p.FindAvailableSegment(0)
	assert.False(t, ok, "fully used pads have no space at all")
}

func TestCheckSegment(t *testing.T) {
	p := vault.NewPad("a", "a.pad", 100).WithSegment(20, 30)

	assert.NoError(t, p.CheckSegment(0, 20))
	assert.NoError(t, p.CheckSegment(30, 70))

	err := p.CheckSegment(25, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vault.ErrSegmentOverlap))
	var segErr *vault.SegmentError
	require.True(t, errors.As(err, &segErr))
	assert.Equal(t, "a", segErr.PadID)
	assert.Equal(t, int64(20), segErr.Conflict.Start)

	assert.True(t, errors.Is(p.CheckSegment(19, 2), vault.ErrSegmentOverlap))
	assert.True(t, errors.Is(p.CheckSegment(90, 11), vault.ErrSegmentOutOfBounds))
	assert.True(t, errors.Is(p.CheckSegment(-1, 5), vault.ErrInvalidSegment))
}

func TestWithSegment_DoesNotTouchReceiver(t *testing.T) {
	p := vault.NewPad("a", "a.pad", 10)
	p.UsedSegments = make([]vault.UsedSegment, 0, 4) // spare capacity

	q := p.WithSegment(0, 10)
	assert.Len(t, p.UsedSegments, 0)
	assert.False(t, p.IsFullyUsed)
	assert.Len(t, q.UsedSegments, 1)
	assert.True(t, q.IsFullyUsed)
	assert.Equal(t, int64(10), q.TotalUsedBytes())
	assert.Equal(t, float64(100), q.UsagePercent())
	assert.Equal(t, int64(0), q.Remaining())
}

func TestPad_ReadOnlyOnReturnValues(t *testing.T) {
	st := vault.NewState()
	st.AddPad("a", "a.pad", 10)

	// read-only methods work on values that are not addressable
	assert.Equal(t, int64(4), vault.NewPad("b", "b.pad", 10).WithSegment(2, 6).TotalUsedBytes())
	assert.Equal(t, int64(10), st.Pads["a"].Remaining())
	assert.False(t, st.Pads["a"].Full())
	off, ok := st.Pads["a"].FindAvailableSegment(10)
	assert.True(t, ok)
	assert.Equal(t, int64(0), off)
	assert.NoError(t, st.Pads["a"].CheckSegment(0, 10))
	assert.False(t, st.Pads["a"].HasSegment(0, 10))
}

func TestAllocator_NoReuse(t *testing.T) {
	rnd := rand.New(rand.NewSource(4711))

	for round := 0; round < 50; round++ {
		p := vault.NewPad("r", "r.pad", 1000)
		for i := 0; i < 200; i++ {
			length := int64(rnd.Intn(120) + 1)
			off, ok := p.FindAvailableSegment(length)
			if !ok {
				continue
			}
			require.NoError(t, p.CheckSegment(off, length), "allocator returned a used range")
			p = p.WithSegment(off, off+length)
		}

		// pairwise non-overlapping
		for i, a := range p.UsedSegments {
			for j, b := range p.UsedSegments {
				if i != j && a.Overlaps(b) {
					t.Fatalf("round %d: %v overlaps %v", round, a, b)
				}
			}
		}
		assert.LessOrEqual(t, p.TotalUsedBytes(), p.Size)
	}
}
