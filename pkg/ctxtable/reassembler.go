package ctxtable

import "github.com/barvaux/gorohc/pkg/rohcerr"

// Reassembler accumulates Segment-prefixed ROHC packet continuations
// into a single Reconstructed Reception Unit (RRU), bounded by the
// endpoint's Maximum RRU (spec.md §5: "default 0, max 65535"). It is the
// segmentation-side analogue of ctxtable.Table's CID-keyed storage,
// adapted from buffer.Bucket's fixed-capacity-slot bound — here a single
// growing slice bounded by MRRU rather than a ring of packet slots, since
// segmentation reassembles one RRU at a time rather than keeping a
// history of past packets.
type Reassembler struct {
	mrru int
	buf  []byte
}

// NewReassembler returns an empty reassembler bounded to mrru bytes.
// mrru == 0 disables segmentation entirely: Push always fails.
func NewReassembler(mrru int) *Reassembler {
	return &Reassembler{mrru: mrru}
}

// SetMRRU updates the bound, discarding any partial RRU in progress.
func (r *Reassembler) SetMRRU(mrru int) {
	r.mrru = mrru
	r.buf = nil
}

// Push appends a Segment packet's payload (the octets after the
// 0xF9 Segment prefix byte and its final-segment flag byte) to the
// in-progress RRU. It fails once the
// accumulated length would exceed MRRU.
func (r *Reassembler) Push(payload []byte) error {
	if r.mrru == 0 {
		return rohcerr.Capacity("ctxtable: segmentation disabled (MRRU=0)", nil)
	}
	if len(r.buf)+len(payload) > r.mrru {
		r.buf = nil
		return rohcerr.Capacity("ctxtable: RRU exceeds MRRU", nil)
	}
	r.buf = append(r.buf, payload...)
	return nil
}

// Final completes the RRU with the last segment's payload and returns
// the fully reassembled packet, resetting the reassembler for the next
// RRU.
func (r *Reassembler) Final(payload []byte) ([]byte, error) {
	if err := r.Push(payload); err != nil {
		return nil, err
	}
	out := r.buf
	r.buf = nil
	return out, nil
}

// Pending reports how many bytes are accumulated so far.
func (r *Reassembler) Pending() int { return len(r.buf) }

// Reset discards any in-progress RRU without completing it.
func (r *Reassembler) Reset() { r.buf = nil }
