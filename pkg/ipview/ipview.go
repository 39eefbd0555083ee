// Package ipview parses IPv4/IPv6 headers into a version-agnostic,
// exhaustively-handled sum type, the redesign RFC 3095's profile layer
// needs in place of the original's sentinel-version struct (spec §9,
// "Malformed vs unknown IP distinction"): every consumer switches over a
// closed set of variants and cannot call a v4-only accessor on a v6 value.
package ipview

import "encoding/binary"

// Kind identifies which variant a View holds.
type Kind int

const (
	Unknown Kind = iota
	V4
	V6
	MalformedV4
	MalformedV6
)

// IPv6 extension header types this package walks past to find the
// transport protocol, per RFC 3095's ip_get_next_header convention.
const (
	extHopByHop    = 0
	extRouting     = 43
	extDestination = 60
	extAuthHeader  = 51
)

// View is the parsed result of Parse: exactly one of the five Kind
// variants is populated; callers must switch on Kind() before touching
// any accessor, since e.g. Addrs() traps on a non-V4/V6 view.
type View struct {
	kind Kind
	raw  []byte

	version    int
	tos        byte
	ttl        byte
	protocol   int
	ipID       uint16
	df         bool
	flowLabel  uint32
	srcAddr    []byte
	dstAddr    []byte
	payload    []byte
	headerLen  int
	fragOffset uint16
}

// Parse inspects the first nibble of b and classifies it as V4, V6,
// MalformedV4, MalformedV6 or Unknown, per RFC 3095 §5.7/spec §4.3.
func Parse(b []byte) View {
	if len(b) < 1 {
		return View{kind: Unknown, raw: b}
	}
	version := int(b[0] >> 4)
	switch version {
	case 4:
		return parseV4(b)
	case 6:
		return parseV6(b)
	default:
		return View{kind: Unknown, raw: b}
	}
}

func parseV4(b []byte) View {
	malformed := View{kind: MalformedV4, raw: b}
	if len(b) < 20 {
		return malformed
	}
	ihl := int(b[0]&0x0f) * 4
	totLen := int(binary.BigEndian.Uint16(b[2:4]))
	if ihl < 20 || ihl > len(b) || totLen != len(b) {
		return malformed
	}
	flagsFrag := binary.BigEndian.Uint16(b[6:8])
	return View{
		kind:       V4,
		raw:        b,
		version:    4,
		tos:        b[1],
		ttl:        b[8],
		protocol:   int(b[9]),
		ipID:       binary.BigEndian.Uint16(b[4:6]),
		df:         flagsFrag&0x4000 != 0,
		fragOffset: flagsFrag & 0x1fff,
		srcAddr:    b[12:16],
		dstAddr:    b[16:20],
		payload:    b[ihl:totLen],
		headerLen:  ihl,
	}
}

func parseV6(b []byte) View {
	malformed := View{kind: MalformedV6, raw: b}
	if len(b) < 40 {
		return malformed
	}
	payloadLen := int(binary.BigEndian.Uint16(b[4:6]))
	if 40+payloadLen != len(b) {
		return malformed
	}
	v := View{
		kind:      V6,
		raw:       b,
		version:   6,
		tos:       byte(binary.BigEndian.Uint32(b[0:4]) >> 20 & 0xff),
		flowLabel: binary.BigEndian.Uint32(b[0:4]) & 0xfffff,
		ttl:       b[7],
		srcAddr:   b[8:24],
		dstAddr:   b[24:40],
		payload:   b[40:],
		headerLen: 40,
	}
	nextHeader := b[6]
	off := 40
	for isV6ExtHeader(nextHeader) {
		if off+2 > len(b) {
			return malformed
		}
		extLen := (int(b[off+1]) + 1) * 8
		if off+extLen > len(b) {
			return malformed
		}
		nextHeader = b[off]
		off += extLen
	}
	v.protocol = int(nextHeader)
	v.headerLen = off
	return v
}

func isV6ExtHeader(next byte) bool {
	switch next {
	case extHopByHop, extDestination, extRouting, extAuthHeader:
		return true
	default:
		return false
	}
}

func (v View) Kind() Kind { return v.kind }

// IsFragment reports whether the view is a non-initial or flagged IPv4
// fragment; ROHC profiles must reject these (spec §4.6).
func (v View) IsFragment() bool {
	if v.kind != V4 {
		return false
	}
	moreFragments := v.raw[6]&0x20 != 0
	return moreFragments || v.fragOffset != 0
}

// GetProtocol returns the final transport protocol (after walking IPv6
// extensions), or 0 for an Unknown/malformed view.
func (v View) GetProtocol() int {
	if v.kind != V4 && v.kind != V6 {
		return 0
	}
	return v.protocol
}

// GetPlen returns the payload length, or 0 for an Unknown/malformed view.
func (v View) GetPlen() int {
	if v.kind != V4 && v.kind != V6 {
		return 0
	}
	return len(v.payload)
}

// TOS returns the Type-of-Service (v4) / Traffic Class (v6) octet. Panics
// if Kind() is not V4 or V6 — spec §9 mandates accessors trap rather than
// silently return zero for undefined variants.
func (v View) TOS() byte {
	v.mustBeParsed()
	return v.tos
}

// TTL returns the Time-To-Live (v4) / Hop Limit (v6).
func (v View) TTL() byte {
	v.mustBeParsed()
	return v.ttl
}

// IPID returns the IPv4 identification field. Only valid for V4.
func (v View) IPID() uint16 {
	if v.kind != V4 {
		panic("ipview: IPID is only defined for V4")
	}
	return v.ipID
}

// DF returns the IPv4 don't-fragment flag. Only valid for V4.
func (v View) DF() bool {
	if v.kind != V4 {
		panic("ipview: DF is only defined for V4")
	}
	return v.df
}

// FlowLabel returns the IPv6 flow label. Only valid for V6.
func (v View) FlowLabel() uint32 {
	if v.kind != V6 {
		panic("ipview: FlowLabel is only defined for V6")
	}
	return v.flowLabel
}

// Addrs returns (source, destination) address bytes (4 bytes for V4, 16
// for V6).
func (v View) Addrs() (src, dst []byte) {
	v.mustBeParsed()
	return v.srcAddr, v.dstAddr
}

// Payload returns the transport-layer payload slice.
func (v View) Payload() []byte {
	v.mustBeParsed()
	return v.payload
}

// HeaderBytes returns the raw header octets (including any IPv6
// extensions walked) this view was parsed from.
func (v View) HeaderBytes() []byte {
	v.mustBeParsed()
	return v.raw[:v.headerLen]
}

// Raw returns the entire byte slice Parse was given.
func (v View) Raw() []byte { return v.raw }

func (v View) mustBeParsed() {
	if v.kind != V4 && v.kind != V6 {
		panic("ipview: accessor called on a View that is not V4 or V6")
	}
}

// Inner parses the payload of a V4/V6 view whose protocol is IP-in-IP (4)
// or IPv6-in-IP (41) as a nested View, supporting the two-stacked-headers
// case spec's Non-goals still allow (more than two is out of scope).
func (v View) Inner() (View, bool) {
	if v.kind != V4 && v.kind != V6 {
		return View{}, false
	}
	if v.protocol != 4 && v.protocol != 41 {
		return View{}, false
	}
	inner := Parse(v.payload)
	if inner.kind != V4 && inner.kind != V6 {
		return View{}, false
	}
	return inner, true
}
