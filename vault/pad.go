package vault

import (
	"sort"
)

// Pad is the record of a single one-time pad file.
//   State -> Pad -> UsedSegment
type Pad struct {

	// ID uniquely identifies a pad within the vault.
	// Example: 0b6a3c47-5d1b-4c42-9d0f-1e1f1f0a9b3e
	ID string `json:"id"`

	// FileName is the name of the backing file (no folder).
	// The folder depends on IsFullyUsed (@see Layout).
	// Example: 0b6a3c47-5d1b-4c42-9d0f-1e1f1f0a9b3e.pad
	FileName string `json:"file_name"`

	// Size is the total pad size in bytes.
	// Example: 1048576
	Size int64 `json:"size"`

	// UsedSegments is the list of consumed byte ranges (unordered, non-overlapping).
	UsedSegments []UsedSegment `json:"used_segments"`

	// IsFullyUsed is a cache of TotalUsedBytes() >= Size.
	// It is recomputed by WithSegment and must not be trusted for allocation.
	IsFullyUsed bool `json:"is_fully_used"`
}

// NewPad returns an unused pad record.
func NewPad(id, fileName string, size int64) Pad {
	return Pad{
		ID:           id,
		FileName:     fileName,
		Size:         size,
		UsedSegments: []UsedSegment{},
		IsFullyUsed:  size <= 0,
	}
}

// TotalUsedBytes is the sum of all used segment lengths.
func (p Pad) TotalUsedBytes() int64 {
	sum := int64(0)
	for _, s := range p.UsedSegments {
		sum += s.Len()
	}
	return sum
}

// Full recomputes the fully-used state from the segments.
func (p Pad) Full() bool {
	return p.TotalUsedBytes() >= p.Size
}

// Remaining returns the number of unused bytes (not necessarily contiguous).
func (p Pad) Remaining() int64 {
	r := p.Size - p.TotalUsedBytes()
	if r < 0 {
		return 0
	}
	return r
}

// UsagePercent returns the used share of the pad (0-100).
func (p Pad) UsagePercent() float64 {
	if p.Size <= 0 {
		return 100
	}
	return float64(p.TotalUsedBytes()) / float64(p.Size) * 100
}

// FindAvailableSegment returns the lowest offset of a free contiguous range
// with at least length bytes (first fit).
//
// special case: length 0 returns offset 0 (if the pad isn't fully used)
func (p Pad) FindAvailableSegment(length int64) (int64, bool) {
	if length < 0 || p.Full() {
		return 0, false
	}
	if length == 0 {
		return 0, true
	}

	// sorted copy: the record itself stays untouched
	sorted := p.sortedSegments()

	// empty pad
	if len(sorted) == 0 {
		return 0, p.Size >= length
	}

	// gap before the first segment
	if sorted[0].Start >= length {
		return 0, true
	}

	// gaps between the segments
	lastEnd := sorted[0].End
	for _, s := range sorted[1:] {
		if satSub(s.Start, lastEnd) >= length {
			return lastEnd, true
		}
		if s.End > lastEnd {
			lastEnd = s.End
		}
	}

	// gap after the last segment
	if satSub(p.Size, lastEnd) >= length {
		return lastEnd, true
	}

	return 0, false
}

// CheckSegment validates an explicit offset: [start, start+length) must fit
// into the pad and must not intersect any used segment.
// There are NO changes!
func (p Pad) CheckSegment(start, length int64) error {
	end := start + length
	if start < 0 || length < 0 || end < start {
		return &SegmentError{PadID: p.ID, Start: start, End: end, Err: ErrInvalidSegment}
	}
	if end > p.Size {
		return &SegmentError{PadID: p.ID, Start: start, End: end, Err: ErrSegmentOutOfBounds}
	}

	requested := UsedSegment{Start: start, End: end}
	for _, s := range p.UsedSegments {
		if requested.Overlaps(s) {
			conflict := s
			return &SegmentError{PadID: p.ID, Start: start, End: end, Conflict: &conflict, Err: ErrSegmentOverlap}
		}
	}
	return nil
}

// HasSegment reports whether exactly [start, end) is already recorded.
func (p Pad) HasSegment(start, end int64) bool {
	for _, s := range p.UsedSegments {
		if s.Start == start && s.End == end {
			return true
		}
	}
	return false
}

// WithSegment returns a copy of the pad with [start, end) appended
// and IsFullyUsed recomputed. The receiver is not modified.
func (p Pad) WithSegment(start, end int64) Pad {
	segments := make([]UsedSegment, 0, len(p.UsedSegments)+1)
	segments = append(segments, p.UsedSegments...)
	segments = append(segments, UsedSegment{Start: start, End: end})

	p.UsedSegments = segments
	p.IsFullyUsed = p.Full()
	return p
}

// Clone returns a deep copy.
func (p Pad) Clone() Pad {
	segments := make([]UsedSegment, len(p.UsedSegments))
	copy(segments, p.UsedSegments)
	p.UsedSegments = segments
	return p
}

// ----------  HELPER  -----------------------------------------------------------------------------------------------//

// sortedSegments returns a copy of the used segments sorted by start.
func (p Pad) sortedSegments() []UsedSegment {
	list := make([]UsedSegment, len(p.UsedSegments))
	copy(list, p.UsedSegments)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Start < list[j].Start
	})
	return list
}

// satSub is a - b, but never below 0.
func satSub(a, b int64) int64 {
	if b >= a {
		return 0
	}
	return a - b
}
