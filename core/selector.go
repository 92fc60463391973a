package core

// PadSelector chooses the pad for an operation:
// either automatic selection or one explicit pad id.
type PadSelector struct {
	id string
}

// AutoSelect picks the first pad (sorted by id) with enough contiguous space.
var AutoSelect = PadSelector{}

// ExplicitPad selects the pad with the given id.
// An empty id is the same as AutoSelect.
func ExplicitPad(id string) PadSelector {
	return PadSelector{id: id}
}

// Explicit returns the pad id and true for an explicit selection.
func (s PadSelector) Explicit() (string, bool) {
	return s.id, s.id != ""
}

func (s PadSelector) String() string {
	if s.id == "" {
		return "auto"
	}
	return s.id
}
