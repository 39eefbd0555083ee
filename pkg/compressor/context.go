// Package compressor implements the compressor-side context state
// machine (IR / FO / SO) and packet-type selection of RFC 3095 §5,
// built the way pkg/sfu.SFU owns a per-flow map of contexts behind a
// registry of pluggable capabilities (here, profile.Registry instead of
// webrtc.RTPCodecCapability).
package compressor

import (
	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/scaledts"
	"github.com/barvaux/gorohc/pkg/wlsb"
)

// State is the compressor's IR/FO/SO state machine (spec §4.4).
type State int

const (
	IR State = iota
	FO
	SO
)

func (s State) String() string {
	switch s {
	case IR:
		return "IR"
	case FO:
		return "FO"
	case SO:
		return "SO"
	default:
		return "unknown"
	}
}

// Defaults for the periodic refresh counters, per spec §4.4.
const (
	DefaultIRRefresh = 1700
	DefaultFORefresh = 700
	// DefaultL is how many successful IR transmissions precede an
	// automatic IR -> FO transition.
	DefaultL = 3
)

// Context is one flow's compressor-side state, grounded on spec §3's
// "Flow context (compressor side)" data model.
type Context struct {
	CID     uint16
	Profile profile.Profile
	Mode    Mode

	state State

	irRemaining   int
	foRemaining   int
	irSentInState int

	irRefresh int
	foRefresh int

	reference   profile.StaticFields
	refDynamic  profile.DynamicFields
	haveRef     bool
	statefulSN  uint32 // internal counter used when the profile has no SN source
	snWindow    *wlsb.Window
	ipidWindow  *wlsb.Window
	scaledTS    *scaledts.Context
	windowWidth int

	stats Stats
}

// Mode is the ROHC operating mode (spec §3).
type Mode int

const (
	Unidirectional Mode = iota
	Optimistic
	Reliable
)

// Stats tracks per-context counters spec §3 names ("statistics").
type Stats struct {
	PacketsSent  uint64
	IRSent       uint64
	IRDynSent    uint64
	UOSent       uint64
	NotCompress  uint64
}

// NewContext returns a fresh IR-state context for cid/p, with W-LSB
// windows of windowWidth entries.
func NewContext(cid uint16, p profile.Profile, mode Mode, windowWidth int) *Context {
	return &Context{
		CID:         cid,
		Profile:     p,
		Mode:        mode,
		state:       IR,
		irRefresh:   DefaultIRRefresh,
		foRefresh:   DefaultFORefresh,
		irRemaining: DefaultIRRefresh,
		foRemaining: DefaultFORefresh,
		snWindow:    wlsb.New(windowWidth, 16),
		ipidWindow:  wlsb.New(windowWidth, 16),
		scaledTS:    scaledts.New(windowWidth),
		windowWidth: windowWidth,
	}
}

// State reports the current compressor state.
func (c *Context) State() State { return c.state }

// Stats reports this context's cumulative counters, for callers feeding
// rohcmetrics.ObserveCompressorStats.
func (c *Context) Stats() Stats { return c.stats }

// ForceIR forces the context back to IR, e.g. on a STATIC-NACK from
// feedback (spec §4.4: "On STATIC-NACK: all states -> IR").
func (c *Context) ForceIR() {
	c.state = IR
	c.irRemaining = c.irRefresh
}

// sn extracts this packet's sequence number, using the profile's SN
// source if it has one or an internal monotonically increasing counter
// otherwise (spec §4.6's "SN source" column).
func (c *Context) sn(v ipview.View) uint32 {
	if n, ok := c.Profile.GetSN(v); ok {
		return n
	}
	c.statefulSN++
	return c.statefulSN
}

// detectChanges compares v's static/dynamic fields against the
// reference and reports which classes of field changed, per spec §4.4
// step 3.
type changes struct {
	staticChanged  bool
	dynamicChanged bool
}

func (c *Context) detectChanges(v ipview.View) changes {
	if !c.haveRef {
		return changes{staticChanged: true, dynamicChanged: true}
	}
	s := c.Profile.Static(v)
	d := c.Profile.Dynamic(v)
	var ch changes
	if !staticEqual(c.reference, s) {
		ch.staticChanged = true
	}
	if !dynamicEqual(c.refDynamic, d) {
		ch.dynamicChanged = true
	}
	return ch
}

func staticEqual(a, b profile.StaticFields) bool {
	return a.Version == b.Version &&
		a.Protocol == b.Protocol &&
		bytesEqual(a.SrcAddr, b.SrcAddr) &&
		bytesEqual(a.DstAddr, b.DstAddr) &&
		a.SrcPort == b.SrcPort &&
		a.DstPort == b.DstPort &&
		a.SSRC == b.SSRC &&
		a.SPI == b.SPI &&
		a.InnerVersion == b.InnerVersion &&
		a.InnerProtocol == b.InnerProtocol &&
		bytesEqual(a.InnerSrcAddr, b.InnerSrcAddr) &&
		bytesEqual(a.InnerDstAddr, b.InnerDstAddr)
}

// dynamicEqual compares every dynamic field a UO/SO packet has no wire
// room to retransmit, so a change forces advanceState to fall back to
// IR-DYN (spec §4.4 step 3's "dynamic chain changed"). IPID, SeqNum,
// Timestamp, ESPSeqNum and InnerIPID are deliberately excluded: those
// are the per-packet "SN source"/TS fields the UO tiers already carry
// (directly or via SN-inference), so comparing them here would force a
// full dynamic-chain retransmission on every single packet.
func dynamicEqual(a, b profile.DynamicFields) bool {
	return a.TOS == b.TOS && a.TTL == b.TTL && a.DF == b.DF &&
		a.FlowLabel == b.FlowLabel &&
		a.UDPChecksumMode == b.UDPChecksumMode &&
		a.PayloadType == b.PayloadType &&
		a.Marker == b.Marker &&
		csrcEqual(a.CSRC, b.CSRC) &&
		a.CoverageLength == b.CoverageLength &&
		a.Tunneled == b.Tunneled &&
		a.InnerVersion == b.InnerVersion &&
		a.InnerTOS == b.InnerTOS &&
		a.InnerTTL == b.InnerTTL &&
		a.InnerDF == b.InnerDF &&
		a.InnerFlowLabel == b.InnerFlowLabel
}

func csrcEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// advanceState applies spec §4.4's state-machine transition rules ahead
// of packet-type selection: decrement refresh counters, force IR on a
// static-known change or an expired IR timer, force at-least-FO on a
// dynamic change or an expired FO timer.
func (c *Context) advanceState(ch changes) {
	if c.irRemaining > 0 {
		c.irRemaining--
	}
	if c.foRemaining > 0 {
		c.foRemaining--
	}

	switch {
	case c.irRemaining == 0 || ch.staticChanged:
		c.state = IR
		c.irRemaining = c.irRefresh
		c.irSentInState = 0
	case c.foRemaining == 0 || ch.dynamicChanged:
		if c.state == SO {
			c.state = FO
		}
		c.foRemaining = c.foRefresh
	}
}

// commit pushes newly-sent values into the flow's W-LSB windows and
// reference, and advances IR->FO->SO on successful transmission counts
// (spec §4.4 step 7).
func (c *Context) commit(v ipview.View, sn uint32) {
	c.reference = c.Profile.Static(v)
	c.refDynamic = c.Profile.Dynamic(v)
	c.haveRef = true

	c.snWindow.Add(sn, uint16(sn))
	if c.reference.Version == 4 {
		c.ipidWindow.Add(uint32(c.refDynamic.IPID), uint16(sn))
	}
	if c.Profile.ID() == profile.RTP {
		c.scaledTS.Update(c.refDynamic.Timestamp, uint16(sn))
	}

	switch c.state {
	case IR:
		c.irSentInState++
		c.stats.IRSent++
		if c.irSentInState >= DefaultL {
			c.state = FO
		}
	case FO:
		c.stats.IRDynSent++
		if c.everyFieldSettled() {
			c.state = SO
		}
	case SO:
		c.stats.UOSent++
	}
	c.stats.PacketsSent++
}

// everyFieldSettled approximates spec §4.4's "FO -> SO once every changing
// field has been signalled enough times" by checking only that the SN
// W-LSB window holds windowWidth committed references; no other field is
// inspected.
func (c *Context) everyFieldSettled() bool {
	return c.snWindow.Len() >= c.windowWidth
}
