package feedback

import "sort"

// maxPendingCache bounds how many distinct lost sequence numbers a
// PendingLoss tracker remembers, mirroring pkg/buffer's nackQueue bound on
// RTP NACK candidates (maxNackCache) so a single pathological flow cannot
// grow the tracker without limit.
const maxPendingCache = 100

// maxRetries bounds how many times PendingLoss will keep reoffering the
// same SN from Pending before giving up on it, the way pkg/buffer's nackQueue
// retries an RTP NACK up to maxNackTimes before escalating.
const maxRetries = 3

type pendingEntry struct {
	sn      uint32
	retried uint8
}

// PendingLoss tracks sequence numbers the decompressor believes were lost
// (a gap appeared between the last committed reference SN and the SN of a
// packet that did decode), so that Optimistic-mode feedback generation
// (spec §4.5) can keep re-asking for them up to maxRetries times before
// giving up, the same shape pkg/buffer.nackQueue uses for RTP
// retransmission requests — here retried packets are not requested again,
// they are simply dropped from tracking once retry budget is spent.
type PendingLoss struct {
	entries []pendingEntry
}

// NewPendingLoss returns an empty tracker.
func NewPendingLoss() *PendingLoss {
	return &PendingLoss{entries: make([]pendingEntry, 0, maxPendingCache+1)}
}

// Push records sn as lost, if it is not already tracked.
func (p *PendingLoss) Push(sn uint32) {
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].sn >= sn })
	if i < len(p.entries) && p.entries[i].sn == sn {
		return
	}
	p.entries = append(p.entries, pendingEntry{})
	copy(p.entries[i+1:], p.entries[i:])
	p.entries[i] = pendingEntry{sn: sn}

	if len(p.entries) > maxPendingCache {
		copy(p.entries, p.entries[1:])
		p.entries = p.entries[:maxPendingCache]
	}
}

// Remove drops sn from tracking, typically once it finally decodes
// successfully (a late or reordered arrival resolved the earlier gap).
func (p *PendingLoss) Remove(sn uint32) {
	i := sort.Search(len(p.entries), func(i int) bool { return p.entries[i].sn >= sn })
	if i >= len(p.entries) || p.entries[i].sn != sn {
		return
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
}

// Pending reports every SN still awaiting resolution, oldest first, and
// advances each one's retry count. SNs that have exhausted maxRetries are
// dropped from future tracking and excluded from the returned slice.
func (p *PendingLoss) Pending() []uint32 {
	kept := p.entries[:0]
	var out []uint32
	for _, e := range p.entries {
		if e.retried >= maxRetries {
			continue
		}
		out = append(out, e.sn)
		e.retried++
		kept = append(kept, e)
	}
	p.entries = kept
	return out
}

// Len reports how many SNs are currently tracked.
func (p *PendingLoss) Len() int { return len(p.entries) }
