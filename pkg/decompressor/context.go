// Package decompressor implements the decompressor-side context state
// machine (NC / SC / FC) and the seven-step decode pipeline of RFC 3095
// §5, mirroring compressor's context shape field-for-field so the two
// packages can be read side by side.
package decompressor

import (
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/scaledts"
	"github.com/barvaux/gorohc/pkg/wlsb"
)

// State is the decompressor's No-Context/Static-Context/Full-Context
// state machine (spec §4.5).
type State int

const (
	NC State = iota
	SC
	FC
)

func (s State) String() string {
	switch s {
	case NC:
		return "NC"
	case SC:
		return "SC"
	case FC:
		return "FC"
	default:
		return "unknown"
	}
}

// Rate-limit defaults for NC/SC demotion, per spec §4.5.
const (
	DefaultK1, DefaultN1 = 31, 101 // FC -> SC
	DefaultK2, DefaultN2 = 32, 102 // SC -> NC
)

// Context is one flow's decompressor-side state (spec §3's "Flow context
// (decompressor side)").
type Context struct {
	CID     uint16
	Profile profile.Profile
	Mode    Mode

	state State

	reference  profile.StaticFields
	refDynamic profile.DynamicFields
	haveRef    bool
	lastSN     uint16

	snWindow    *wlsb.Window
	scaledTS    *scaledts.Decoder
	windowWidth int

	crcWindow []bool // sliding history of CRC pass/fail, most recent last
	k1, n1    int
	k2, n2    int

	pendingLoss []uint16 // SNs observed missing since the last drain, queued for Loss feedback
	stats       Stats

	features Features
}

// Mode mirrors compressor.Mode so the two packages don't need to import
// each other just to share this enum.
type Mode int

const (
	Unidirectional Mode = iota
	Optimistic
	Reliable
)

// Stats tracks per-context counters for the decompressor side.
type Stats struct {
	Decoded     uint64
	CRCFailures uint64
	Repairs     uint64
	Lost        uint64
}

// NewContext returns a fresh NC-state context.
func NewContext(cid uint16, p profile.Profile, mode Mode, windowWidth int) *Context {
	return &Context{
		CID:         cid,
		Profile:     p,
		Mode:        mode,
		state:       NC,
		snWindow:    wlsb.New(windowWidth, 16),
		scaledTS:    scaledts.NewDecoder(windowWidth),
		windowWidth: windowWidth,
		k1:          DefaultK1, n1: DefaultN1,
		k2: DefaultK2, n2: DefaultN2,
	}
}

// State reports the current decompressor state.
func (c *Context) State() State { return c.state }

// Stats reports this context's cumulative counters, for callers feeding
// rohcmetrics.ObserveDecompressorStats.
func (c *Context) Stats() Stats { return c.stats }

// recordCRC appends a CRC pass/fail outcome and applies spec §4.5's rate
// -limited demotion: FC -> SC after k1-of-n1 recent failures, SC -> NC
// after a further k2-of-n2.
func (c *Context) recordCRC(ok bool) {
	c.crcWindow = append(c.crcWindow, ok)
	n := c.n1
	if c.state == SC {
		n = c.n2
	}
	if len(c.crcWindow) > n {
		c.crcWindow = c.crcWindow[len(c.crcWindow)-n:]
	}

	failures := 0
	for _, v := range c.crcWindow {
		if !v {
			failures++
		}
	}

	switch c.state {
	case FC:
		if failures >= c.k1 {
			c.state = SC
			c.crcWindow = nil
		}
	case SC:
		if failures >= c.k2 {
			c.state = NC
			c.crcWindow = nil
		}
	}
}

// onIRSuccess promotes NC/SC/FC -> FC on a successfully-CRC-verified IR,
// per spec §4.5 ("Any state -> FC on receipt of an IR that passes CRC").
func (c *Context) onIRSuccess() {
	c.state = FC
	c.crcWindow = nil
}

// onIRDynSuccess applies the narrower SC -> FC promotion an IR-DYN (no
// static chain) is allowed to make.
func (c *Context) onIRDynSuccess() {
	if c.state == SC {
		c.state = FC
		c.crcWindow = nil
	}
}

// commit stores a newly-verified header as the reference, and records any
// SNs that were skipped between the previous and new reference as lost
// (spec §3's decompressor statistics; surfaced to the compressor via a
// Loss feedback option once Decompress drains pendingLoss).
func (c *Context) commit(static profile.StaticFields, dynamic profile.DynamicFields, sn uint16) {
	// maxGapReport bounds how many missing SNs a single jump records, so a
	// stale or wrapped reference can't turn into a 65535-entry scan.
	const maxGapReport = 64
	if c.haveRef {
		missing := uint16(sn - c.lastSN - 1)
		if missing > 0 && missing <= maxGapReport {
			for gap := c.lastSN + 1; gap != sn; gap++ {
				c.pendingLoss = append(c.pendingLoss, gap)
			}
			c.stats.Lost += uint64(missing)
		}
	}
	c.reference = static
	c.refDynamic = dynamic
	c.haveRef = true
	c.lastSN = sn
	c.snWindow.Add(uint32(sn), sn)
	c.stats.Decoded++
}

// drainLoss returns and clears the SNs noted missing since the last
// drain.
func (c *Context) drainLoss() []uint16 {
	lost := c.pendingLoss
	c.pendingLoss = nil
	return lost
}
