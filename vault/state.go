package vault

import (
	"sort"
)

// State is the ledger of a vault: all pads and their used segments.
// The map key is the pad id (@see Pad.ID).
//
// A State is owned by one writer. It is passed around explicitly
// and there is no package level instance.
type State struct {
	Pads map[string]Pad `json:"pads"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Pads: make(map[string]Pad),
	}
}

// AddPad registers a new, unused pad.
func (st *State) AddPad(id, fileName string, size int64) Pad {
	p := NewPad(id, fileName, size)
	st.Put(p)
	return p
}

// Put inserts or replaces a pad record.
func (st *State) Put(p Pad) {
	if st.Pads == nil {
		st.Pads = make(map[string]Pad)
	}
	st.Pads[p.ID] = p
}

// Pad returns a copy of the pad record.
func (st *State) Pad(id string) (Pad, error) {
	p, ok := st.Pads[id]
	if !ok {
		return Pad{}, ErrPadNotFound
	}
	return p.Clone(), nil
}

// RemovePad deletes a pad record (not the file).
func (st *State) RemovePad(id string) bool {
	if _, ok := st.Pads[id]; !ok {
		return false
	}
	delete(st.Pads, id)
	return true
}

// SortedIDs returns all pad ids in a stable order.
func (st *State) SortedIDs() []string {
	ids := make([]string, 0, len(st.Pads))
	for id := range st.Pads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	c := NewState()
	for id, p := range st.Pads {
		c.Pads[id] = p.Clone()
	}
	return c
}
