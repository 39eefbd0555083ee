// Package scaledts implements the Scaled-RTP-Timestamp encoder (RFC 3095
// §4.5.5, RFC 4815 §4.4): a per-flow sub-context that learns a constant
// TS_STRIDE between consecutive RTP timestamps and, once learned, lets
// the compressor send only TS_SCALED (often zero bits, deducible from
// SN) instead of the full 32-bit timestamp.
package scaledts

import (
	"github.com/barvaux/gorohc/pkg/sdvl"
	"github.com/barvaux/gorohc/pkg/wlsb"
)

// State is the INIT_TS / INIT_STRIDE / SEND_SCALED sub-state machine
// RFC 4815 §4.4.3 defines for TS_STRIDE learning.
type State int

const (
	// InitTS means no stable TS_STRIDE has been observed yet.
	InitTS State = iota
	// InitStride means a candidate TS_STRIDE exists but has not been
	// transmitted to the decompressor enough times to be trusted.
	InitStride
	// SendScaled means TS_STRIDE is established and only TS_SCALED
	// (optionally zero bits, deducible from SN) needs to be sent.
	SendScaled
)

// initStrideRobustness is how many consecutive INIT_STRIDE packets must
// carry TS_STRIDE/TS_OFFSET before SEND_SCALED may be entered, mirroring
// the original's robustness margin against packet loss during learning.
const initStrideRobustness = 3

// Context is one flow's scaled-timestamp sub-context, grounded on
// ts_sc_comp.c's struct ts_sc_comp. It owns its own W-LSB window over
// TS_SCALED (32-bit field) so compressor code never has to manage that
// window directly. MinBits sizes TS_SCALED with wlsb.ShiftTS (2^(k-2)-1),
// the same shift the decompressor decodes it with; wlsb.ShiftTSSc (-1) is
// not used.
type Context struct {
	state State

	tsStride uint32
	tsOffset uint32
	tsScaled uint32

	oldTS uint32
	ts    uint32
	oldSN uint16
	sn    uint16

	tsDelta      uint32
	haveOldVals  bool
	isDeducible  bool
	initStrideN  int
	scaledWindow *wlsb.Window
}

// New returns a fresh context with an empty TS_SCALED W-LSB window of the
// given width (max entries kept, typically 4).
func New(windowWidth int) *Context {
	return &Context{
		state:        InitTS,
		scaledWindow: wlsb.New(windowWidth, 32),
	}
}

// Update stores a new (ts, sn) observation, recomputes TS_STRIDE/
// TS_OFFSET/TS_SCALED and the learning state, and atomically commits the
// resulting TS_SCALED into the W-LSB window — fusing c_add_ts and
// add_scaled into one call so the window can never trail the TS state by
// one step (spec §9's open question on this, resolved in this package).
func (c *Context) Update(ts uint32, sn uint16) {
	c.isDeducible = false
	c.oldTS, c.oldSN = c.ts, c.sn
	c.ts, c.sn = ts, sn

	if !c.haveOldVals {
		c.haveOldVals = true
		return
	}

	if c.ts >= c.oldTS {
		c.tsDelta = c.ts - c.oldTS
	} else {
		c.tsDelta = c.oldTS - c.ts
	}

	if c.tsDelta == 0 {
		c.state = InitTS
		return
	}
	if uint64(c.tsDelta) > sdvl.MaxValue {
		c.state = InitTS
		return
	}

	if c.state == InitTS {
		c.state = InitStride
		c.initStrideN = 0
	}

	switch c.state {
	case InitStride:
		if c.tsDelta != c.tsStride || c.ts%c.tsDelta != c.tsOffset {
			c.initStrideN = 0
		}
		c.tsStride = c.tsDelta
		c.tsOffset = c.ts % c.tsStride
		c.tsScaled = (c.ts - c.tsOffset) / c.tsStride
		c.initStrideN++
		if c.initStrideN >= initStrideRobustness {
			c.state = SendScaled
		}

	case SendScaled:
		oldScaled, oldOffset := c.tsScaled, c.tsOffset

		if c.tsDelta != c.tsStride {
			switch {
			case c.tsDelta%c.tsStride != 0:
				c.state = InitStride
				c.initStrideN = 0
				c.tsStride = c.tsDelta
			case c.tsDelta/c.tsStride != uint32(c.sn-c.oldSN):
				c.state = InitStride
				c.initStrideN = 0
			default:
				// TS delta changed but tracks SN deltas exactly: a lost
				// packet, not a clock change. Keep TS_STRIDE as-is.
			}
		}

		c.tsOffset = c.ts % c.tsStride
		c.tsScaled = (c.ts - c.tsOffset) / c.tsStride

		c.isDeducible = c.state == SendScaled &&
			c.tsScaled-oldScaled == uint32(c.sn-c.oldSN)

		if c.ts < c.oldTS && oldOffset != c.tsOffset {
			c.state = InitStride
			c.initStrideN = 0
		}
	}

	c.scaledWindow.Add(c.tsScaled, c.sn)
}

// State reports the current learning sub-state.
func (c *Context) State() State { return c.state }

// Stride returns the learned TS_STRIDE (0 before one is ever learned).
func (c *Context) Stride() uint32 { return c.tsStride }

// Offset returns the current TS_OFFSET.
func (c *Context) Offset() uint32 { return c.tsOffset }

// Scaled returns the current TS_SCALED.
func (c *Context) Scaled() uint32 { return c.tsScaled }

// IsDeducible reports whether the decompressor can recompute TS_SCALED
// purely from the SN delta, letting the compressor omit TS bits entirely.
func (c *Context) IsDeducible() bool { return c.isDeducible }

// MinBits returns the fewest bits of scaled (the TS_SCALED value computed
// for the packet currently being built) that resolve unambiguously against
// the window established by prior packets. scaled is passed in explicitly,
// rather than read from c.tsScaled, because buildPacket must make this
// decision before Update() folds the current packet's timestamp into the
// window (the same encode-before-commit lag the SN window observes).
func (c *Context) MinBits(scaled uint32) (k uint, ok bool) {
	if c.scaledWindow.Empty() {
		return 0, false
	}
	return c.scaledWindow.MinKFunc(scaled, wlsb.ShiftTS)
}

// Unscale reconstructs a full 32-bit timestamp from a decoded TS_SCALED
// value, per RFC 3095 §4.5.5: ts = ts_scaled*ts_stride + ts_offset. The
// decompressor must only call this once SEND_SCALED has been entered and
// TS_STRIDE/TS_OFFSET have been established.
func Unscale(tsScaled, tsStride, tsOffset uint32) uint32 {
	return tsScaled*tsStride + tsOffset
}

// Scale is Unscale's inverse: it computes the TS_SCALED value a given
// timestamp maps to under the current TS_STRIDE/TS_OFFSET, so the
// compressor can decide a bit-width for it before Update() has folded it
// into the learned window. Returns 0 if tsStride is not yet established.
func Scale(ts, tsStride, tsOffset uint32) uint32 {
	if tsStride == 0 {
		return 0
	}
	return (ts - tsOffset) / tsStride
}
