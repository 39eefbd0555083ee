// Package wlsb implements Window-based Least-Significant-Bits encoding
// (RFC 3095 §4.5.1): the k-minimum encoder, the interval decoder, and the
// sliding window of recently committed (value, sn) pairs that makes both
// sides agree on which interval a given k-bit field resolves to.
//
// The window itself is a ring of bounded size, the same shape pkg/twcc
// keeps for its extInfo history; here it is backed by gammazero/deque
// instead of a hand-rolled slice so push/evict at both ends stays O(1).
package wlsb

import "github.com/gammazero/deque"

// entry is one committed (reference value, sequence number) pair.
type entry struct {
	value uint32
	sn    uint16
}

// Window is a per-field W-LSB encoder/decoder context. FieldBits is the
// full width b of the field (16 for SN, 32 for RTP TS, ...); Width is the
// maximum number of entries N kept (typically 4).
type Window struct {
	entries   deque.Deque[entry]
	width     int
	fieldBits uint
}

// New returns an empty window of the given width (max entries) and field
// width in bits.
func New(width int, fieldBits uint) *Window {
	return &Window{width: width, fieldBits: fieldBits}
}

// Add pushes (value, sn) as the most recently committed value for this
// field, evicting the oldest entry once the window exceeds its width.
func (w *Window) Add(value uint32, sn uint16) {
	w.entries.PushBack(entry{value: value, sn: sn})
	for w.entries.Len() > w.width {
		w.entries.PopFront()
	}
}

// Ack drops every entry whose sequence number is <= sn, the way a
// decompressor's cumulative ACK lets the compressor prune entries it knows
// the peer will never need to resolve against again.
func (w *Window) Ack(sn uint16) {
	kept := deque.Deque[entry]{}
	for i := 0; i < w.entries.Len(); i++ {
		e := w.entries.At(i)
		if seqLessEq(e.sn, sn) {
			continue
		}
		kept.PushBack(e)
	}
	w.entries = kept
}

// seqLessEq compares 16-bit sequence numbers with wraparound tolerance: a
// is considered <= b unless b is behind a by more than half the SN space.
func seqLessEq(a, b uint16) bool {
	return int16(a-b) <= 0
}

// Empty reports whether the window has no committed entries yet; the IR
// path is what establishes the first reference.
func (w *Window) Empty() bool { return w.entries.Len() == 0 }

// Len reports how many entries are currently committed.
func (w *Window) Len() int { return w.entries.Len() }

// MinK returns the smallest k in [0, FieldBits] such that every entry
// currently in the window resolves value unambiguously when LSB-decoded
// with shift p. ok is false if even k == FieldBits fails, which should not
// happen for valid field widths since a full-width field is always exact.
func (w *Window) MinK(value uint32, p int) (k uint, ok bool) {
	for candidate := uint(0); candidate <= w.fieldBits; candidate++ {
		if w.resolvesForAll(value, candidate, p) {
			return candidate, true
		}
	}
	return 0, false
}

// MinKFunc is MinK for fields (RTP TS) whose shift parameter itself
// depends on the candidate k, per RFC 4815's asymmetric TS policy
// (p = 2^(k-2)-1): shift is evaluated fresh for every candidate k.
func (w *Window) MinKFunc(value uint32, shift func(k uint) int) (k uint, ok bool) {
	for candidate := uint(0); candidate <= w.fieldBits; candidate++ {
		if w.resolvesForAll(value, candidate, shift(candidate)) {
			return candidate, true
		}
	}
	return 0, false
}

func (w *Window) resolvesForAll(value uint32, k uint, p int) bool {
	mask := uint32(0)
	if k < 32 {
		mask = uint32(1)<<k - 1
	} else {
		mask = ^uint32(0)
	}
	m := value & mask
	for i := 0; i < w.entries.Len(); i++ {
		e := w.entries.At(i)
		got, ok := Decode(e.value, k, m, p, w.fieldBits)
		if !ok || got != value {
			return false
		}
	}
	return true
}

// Decode resolves the unique field value whose low k bits equal m, given
// reference r and shift p, within the b-bit field. ok is false when no
// such value exists in the interval [r-p, r+(2^k-1-p)] — an LSB failure,
// per RFC 3095 §4.5.1 — which the caller must treat as malformed input,
// never as a wrong value.
func Decode(reference uint32, k uint, m uint32, p int, fieldBits uint) (value uint32, ok bool) {
	if k > fieldBits {
		return 0, false
	}
	if k == 0 {
		return reference, true
	}
	mod := int64(1) << k
	fieldMod := int64(1) << fieldBits
	low := int64(reference) - int64(p)
	high := low + mod - 1
	mMasked := int64(m) & (mod - 1)

	base := floorDiv(low, mod) * mod
	candidate := base + mMasked
	if candidate < low {
		candidate += mod
	}
	if candidate > high {
		return 0, false
	}

	result := candidate % fieldMod
	if result < 0 {
		result += fieldMod
	}
	return uint32(result), true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Shift parameter policy (RFC 3095 §4.5.1 / RFC 4815): profiles fix these.
const (
	ShiftSN   = -1
	ShiftIPID = -1
	ShiftTSSc = -1
)

// ShiftTS computes the asymmetric RTP timestamp shift 2^(k-2)-1 used when
// k >= 2; for k < 2 the shift is 0 (no room for asymmetry).
func ShiftTS(k uint) int {
	if k < 2 {
		return 0
	}
	return 1<<(k-2) - 1
}
