package core

import (
	"github.com/SchnorcherSepp/otpvault/vault"
)

// PadStatus is the usage summary of one pad.
type PadStatus struct {
	ID           string  `json:"id"`
	Size         int64   `json:"size"`
	Used         int64   `json:"used"`
	Remaining    int64   `json:"remaining"`
	UsagePercent float64 `json:"usage_percent"`
	Segments     int     `json:"segments"`
	FullyUsed    bool    `json:"is_fully_used"`
	Path         string  `json:"path"`
}

// VaultStatus is the usage summary of a vault.
type VaultStatus struct {
	Root          string      `json:"root"`
	Pads          []PadStatus `json:"pads"`
	Total         int64       `json:"total"`
	Used          int64       `json:"used"`
	Available     int         `json:"available"`
	FullyUsed     int         `json:"fully_used"`
	LargestUnused int64       `json:"largest_unused"` // largest contiguous free range
}

// Status summarizes all pads (sorted by id).
func Status(l vault.Layout, st *vault.State) VaultStatus {
	vs := VaultStatus{
		Root: l.Root,
		Pads: make([]PadStatus, 0, len(st.Pads)),
	}

	for _, id := range st.SortedIDs() {
		p, _ := st.Pad(id)
		full := p.IsFullyUsed || p.Full()

		ps := PadStatus{
			ID:           p.ID,
			Size:         p.Size,
			Used:         p.TotalUsedBytes(),
			Remaining:    p.Remaining(),
			UsagePercent: p.UsagePercent(),
			Segments:     len(p.UsedSegments),
			FullyUsed:    full,
			Path:         l.ExpectedPath(p),
		}
		vs.Pads = append(vs.Pads, ps)

		vs.Total += ps.Size
		vs.Used += ps.Used
		if full {
			vs.FullyUsed++
		} else {
			vs.Available++
			if free := largestGap(p); free > vs.LargestUnused {
				vs.LargestUnused = free
			}
		}
	}
	return vs
}

// largestGap finds the largest contiguous free range of a pad.
func largestGap(p vault.Pad) int64 {
	lo, hi := int64(0), p.Remaining()
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if _, ok := p.FindAvailableSegment(mid); ok {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
