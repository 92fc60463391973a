package vault

// UsedSegment is a consumed byte range of a pad.
// The range is half-open: [Start, End)
//   State -> Pad -> UsedSegment
type UsedSegment struct {

	// Start is the first used byte (inclusive).
	// Example: 0
	Start int64 `json:"start"`

	// End is the first byte after the segment (exclusive).
	// Example: 4096
	End int64 `json:"end"`
}

// Len returns the segment length in bytes.
// Malformed segments (End < Start) have the length 0.
func (s UsedSegment) Len() int64 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Overlaps uses the half-open interval test.
func (s UsedSegment) Overlaps(o UsedSegment) bool {
	return s.Start < o.End && s.End > o.Start
}
