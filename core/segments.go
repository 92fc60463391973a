package core

import (
	"fmt"

	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
)

// Segment is raw pad material handed out by TakeSegment.
type Segment struct {
	PadID string `json:"pad_id"`
	Start int64  `json:"start_byte"`
	Data  []byte `json:"data"`
}

// End is the exclusive end offset.
func (s Segment) End() int64 {
	return s.Start + int64(len(s.Data))
}

// TakeSegment allocates length bytes, records them as used and returns the raw pad bytes.
// This is for clients that do the XOR themselves.
func TakeSegment(l vault.Layout, st *vault.State, sel PadSelector, length int64) (Segment, error) {
	opErr := &OpError{Op: "take", Length: length}
	if length <= 0 {
		opErr.Err = fmt.Errorf("%w: %d", ErrInvalidLength, length)
		return Segment{}, opErr
	}

	p, err := resolvePad(st, sel, length, nil)
	if err != nil {
		opErr.Err = err
		return Segment{}, opErr
	}
	opErr.PadID = p.ID

	start, err := resolveOffset(p, length, nil)
	if err != nil {
		opErr.Err = err
		return Segment{}, opErr
	}
	opErr.Start = start

	data, err := readSegment(l, p, start, length)
	if err != nil {
		opErr.Err = err
		return Segment{}, opErr
	}

	// never hand out bytes that are not recorded
	if _, err := commit(l, st, p, start, start+length, false); err != nil {
		opErr.Err = err
		return Segment{}, opErr
	}

	log.Infof("%s/TakeSegment: pad '%s' [%d, %d)", packageName, p.ID, start, start+length)
	return Segment{PadID: p.ID, Start: start, Data: data}, nil
}

// MarkUsed records [start, end) of a pad without any cipher pass.
// Recording an already recorded segment again is a no-op.
func MarkUsed(l vault.Layout, st *vault.State, padID string, start, end int64) error {
	opErr := &OpError{Op: "mark", PadID: padID, Start: start, Length: end - start}

	p, err := st.Pad(padID)
	if err != nil {
		opErr.Err = err
		return opErr
	}
	if end == start || p.HasSegment(start, end) {
		return nil
	}
	if err := p.CheckSegment(start, end-start); err != nil {
		opErr.Err = err
		return opErr
	}
	if _, err := commit(l, st, p, start, end, false); err != nil {
		opErr.Err = err
		return opErr
	}

	log.Infof("%s/MarkUsed: pad '%s' [%d, %d)", packageName, padID, start, end)
	return nil
}
