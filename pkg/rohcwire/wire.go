// Package rohcwire is the shared static/dynamic field codec the
// compressor and decompressor packets both need, so the wire
// representation of a profile's fields lives in exactly one place
// instead of being duplicated compressor-side and decompressor-side.
//
// Wire packet type prefixes are resolved from this document's
// original_source-resolution rule: spec.md's prefix table lists
// `11111101` for both "Segment" and "IR" (a contradiction in the
// distillation), so this package follows the explicit literal scenario
// in spec.md's end-to-end examples ("first emission is an IR packet
// beginning with the IR prefix 11111101") and assigns Segment a
// different prefix, recorded as an Open Question decision in DESIGN.md.
package rohcwire

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohcerr"
)

// Packet type prefix octets.
const (
	PrefixIR      = 0xFD // 1111 1101
	PrefixIRDyn   = 0xFE // 1111 1110
	PrefixSegment = 0xF9 // 1111 1001 (disambiguated from PrefixIR, see the package comment)
	PrefixUO0Mask = 0x80 // top bit 0 identifies UO-0
	PrefixUO1     = 0x80 // top 2 bits "10"
	PrefixUO1Mask = 0xC0
	PrefixUOR2     = 0xC0 // top 3 bits "110"
	PrefixUOR2Mask = 0xE0
)

// EncodeStatic serializes the profile-relevant subset of s into the IR
// packet's static chain.
func EncodeStatic(id profile.ID, s profile.StaticFields) []byte {
	var out []byte
	out = append(out, byte(s.Version))
	out = append(out, byte(s.Protocol))
	out = append(out, s.SrcAddr...)
	out = append(out, s.DstAddr...)

	switch id {
	case profile.UDP, profile.RTP, profile.UDPLite:
		out = append(out, u16(s.SrcPort)...)
		out = append(out, u16(s.DstPort)...)
		if id == profile.RTP {
			out = append(out, u32(s.SSRC)...)
		}
	case profile.ESP:
		out = append(out, u32(s.SPI)...)
	}
	out = append(out, encodeInnerStatic(s)...)
	return out
}

// encodeInnerStatic appends the two-stack tunnel's inner static chain
// (SPEC_FULL §4.3), a single 0 byte when s carries no tunnel.
func encodeInnerStatic(s profile.StaticFields) []byte {
	if s.InnerVersion == 0 {
		return []byte{0}
	}
	out := []byte{byte(s.InnerVersion), byte(s.InnerProtocol)}
	out = append(out, s.InnerSrcAddr...)
	out = append(out, s.InnerDstAddr...)
	return out
}

// DecodeStatic is EncodeStatic's inverse. addrLen must be 4 (IPv4) or 16
// (IPv6), known from context since the static chain carries no explicit
// length.
func DecodeStatic(id profile.ID, b []byte, addrLen int) (profile.StaticFields, int, error) {
	min := 2 + 2*addrLen
	if len(b) < min {
		return profile.StaticFields{}, 0, rohcerr.Malformed("rohcwire: truncated static chain", nil)
	}
	s := profile.StaticFields{
		Version:  int(b[0]),
		Protocol: int(b[1]),
	}
	off := 2
	s.SrcAddr = append([]byte(nil), b[off:off+addrLen]...)
	off += addrLen
	s.DstAddr = append([]byte(nil), b[off:off+addrLen]...)
	off += addrLen

	switch id {
	case profile.UDP, profile.RTP, profile.UDPLite:
		if len(b) < off+4 {
			return profile.StaticFields{}, 0, rohcerr.Malformed("rohcwire: truncated port static fields", nil)
		}
		s.SrcPort = binary.BigEndian.Uint16(b[off : off+2])
		s.DstPort = binary.BigEndian.Uint16(b[off+2 : off+4])
		off += 4
		if id == profile.RTP {
			if len(b) < off+4 {
				return profile.StaticFields{}, 0, rohcerr.Malformed("rohcwire: truncated SSRC static field", nil)
			}
			s.SSRC = binary.BigEndian.Uint32(b[off : off+4])
			off += 4
		}
	case profile.ESP:
		if len(b) < off+4 {
			return profile.StaticFields{}, 0, rohcerr.Malformed("rohcwire: truncated SPI static field", nil)
		}
		s.SPI = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}

	if len(b) < off+1 {
		return profile.StaticFields{}, 0, rohcerr.Malformed("rohcwire: truncated inner tunnel marker", nil)
	}
	innerVersion := int(b[off])
	off++
	if innerVersion != 0 {
		innerAddrLen := 4
		if innerVersion == 6 {
			innerAddrLen = 16
		}
		if len(b) < off+1+2*innerAddrLen {
			return profile.StaticFields{}, 0, rohcerr.Malformed("rohcwire: truncated inner tunnel static chain", nil)
		}
		s.InnerVersion = innerVersion
		s.InnerProtocol = int(b[off])
		off++
		s.InnerSrcAddr = append([]byte(nil), b[off:off+innerAddrLen]...)
		off += innerAddrLen
		s.InnerDstAddr = append([]byte(nil), b[off:off+innerAddrLen]...)
		off += innerAddrLen
	}
	return s, off, nil
}

// EncodeDynamic serializes the profile-relevant subset of d into the
// IR/IR-DYN dynamic chain.
func EncodeDynamic(id profile.ID, version int, d profile.DynamicFields) []byte {
	var out []byte
	out = append(out, d.TTL)
	if version == 4 {
		out = append(out, d.TOS)
		out = append(out, u16(d.IPID)...)
		out = append(out, boolByte(d.DF))
	} else {
		out = append(out, u32(d.FlowLabel)...)
	}

	switch id {
	case profile.UDP:
		out = append(out, u16(d.UDPChecksum)...)
		out = append(out, byte(d.UDPChecksumMode))
	case profile.UDPLite:
		out = append(out, u16(d.CoverageLength)...)
		out = append(out, u16(d.UDPChecksum)...)
	case profile.RTP:
		out = append(out, d.PayloadType, boolByte(d.Marker))
		out = append(out, u16(d.SeqNum)...)
		out = append(out, u32(d.Timestamp)...)
		out = append(out, byte(len(d.CSRC)))
		for _, c := range d.CSRC {
			out = append(out, u32(c)...)
		}
	case profile.ESP:
		out = append(out, u32(d.ESPSeqNum)...)
	}
	out = append(out, encodeInnerDynamic(d)...)
	return out
}

// encodeInnerDynamic appends the two-stack tunnel's inner dynamic chain,
// a single 0 byte when d carries no tunnel.
func encodeInnerDynamic(d profile.DynamicFields) []byte {
	if !d.Tunneled {
		return []byte{0}
	}
	out := []byte{1, byte(d.InnerVersion), d.InnerTTL}
	if d.InnerVersion == 4 {
		out = append(out, d.InnerTOS)
		out = append(out, u16(d.InnerIPID)...)
		out = append(out, boolByte(d.InnerDF))
	} else {
		out = append(out, u32(d.InnerFlowLabel)...)
	}
	return out
}

// DecodeDynamic is EncodeDynamic's inverse.
func DecodeDynamic(id profile.ID, version int, b []byte) (profile.DynamicFields, int, error) {
	if len(b) < 1 {
		return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: empty dynamic chain", nil)
	}
	d := profile.DynamicFields{TTL: b[0]}
	off := 1
	if version == 4 {
		if len(b) < off+4 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated v4 dynamic chain", nil)
		}
		d.TOS = b[off]
		d.IPID = binary.BigEndian.Uint16(b[off+1 : off+3])
		d.DF = b[off+3] != 0
		off += 4
	} else {
		if len(b) < off+4 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated v6 dynamic chain", nil)
		}
		d.FlowLabel = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}

	switch id {
	case profile.UDP:
		if len(b) < off+3 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated UDP dynamic chain", nil)
		}
		d.UDPChecksum = binary.BigEndian.Uint16(b[off : off+2])
		d.UDPChecksumMode = profile.ChecksumMode(b[off+2])
		off += 3
	case profile.UDPLite:
		if len(b) < off+4 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated UDP-Lite dynamic chain", nil)
		}
		d.CoverageLength = binary.BigEndian.Uint16(b[off : off+2])
		d.UDPChecksum = binary.BigEndian.Uint16(b[off+2 : off+4])
		off += 4
	case profile.RTP:
		if len(b) < off+8 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated RTP dynamic chain", nil)
		}
		d.PayloadType = b[off]
		d.Marker = b[off+1] != 0
		d.SeqNum = binary.BigEndian.Uint16(b[off+2 : off+4])
		d.Timestamp = binary.BigEndian.Uint32(b[off+4 : off+8])
		off += 8
		cc := int(b[off])
		off++
		if len(b) < off+cc*4 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated CSRC list", nil)
		}
		for i := 0; i < cc; i++ {
			d.CSRC = append(d.CSRC, binary.BigEndian.Uint32(b[off:off+4]))
			off += 4
		}
	case profile.ESP:
		if len(b) < off+4 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated ESP dynamic chain", nil)
		}
		d.ESPSeqNum = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}

	if len(b) < off+1 {
		return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated inner tunnel marker", nil)
	}
	tunneled := b[off] != 0
	off++
	if tunneled {
		if len(b) < off+2 {
			return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated inner tunnel dynamic chain", nil)
		}
		d.Tunneled = true
		d.InnerVersion = int(b[off])
		d.InnerTTL = b[off+1]
		off += 2
		if d.InnerVersion == 4 {
			if len(b) < off+4 {
				return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated inner v4 dynamic chain", nil)
			}
			d.InnerTOS = b[off]
			d.InnerIPID = binary.BigEndian.Uint16(b[off+1 : off+3])
			d.InnerDF = b[off+3] != 0
			off += 4
		} else {
			if len(b) < off+4 {
				return profile.DynamicFields{}, 0, rohcerr.Malformed("rohcwire: truncated inner v6 dynamic chain", nil)
			}
			d.InnerFlowLabel = binary.BigEndian.Uint32(b[off : off+4])
			off += 4
		}
	}
	return d, off, nil
}

func u16(v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b[:]
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
