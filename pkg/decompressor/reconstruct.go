package decompressor

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohcwire"
)

// reconstruct rebuilds the original IP packet from a verified
// static/dynamic field set and the application-layer payload that rode
// uncompressed, per spec §4.5 step 6 ("reconstruct the full header from
// reference ∪ delta ∪ inferred-from-SN fields"). The transport header
// this profile compresses (UDP/RTP/ESP/UDP-Lite, or a tunneled inner IP
// header) is rebuilt from s/d rather than carried on the wire, and the
// IPv4 checksum is always re-derived, per the round-trip property's
// explicit carve-out (spec §8).
func reconstruct(id profile.ID, s profile.StaticFields, d profile.DynamicFields, appPayload []byte) []byte {
	tail := rohcwire.BuildTransport(id, s, d, appPayload)
	if s.Version == 4 {
		return reconstructIPv4(s, d, tail)
	}
	return reconstructIPv6(s, d, tail)
}

func reconstructIPv4(s profile.StaticFields, d profile.DynamicFields, tail []byte) []byte {
	total := 20 + len(tail)
	out := make([]byte, 20, total)
	out[0] = 0x45 // version 4, IHL 5 (no options reconstructed)
	out[1] = d.TOS
	binary.BigEndian.PutUint16(out[2:4], uint16(total))
	binary.BigEndian.PutUint16(out[4:6], d.IPID)
	if d.DF {
		out[6] = 0x40
	}
	out[8] = d.TTL
	out[9] = byte(s.Protocol)
	copy(out[12:16], s.SrcAddr)
	copy(out[16:20], s.DstAddr)
	binary.BigEndian.PutUint16(out[10:12], ipv4Checksum(out))
	return append(out, tail...)
}

func reconstructIPv6(s profile.StaticFields, d profile.DynamicFields, tail []byte) []byte {
	out := make([]byte, 40, 40+len(tail))
	out[0] = 0x60 | byte(d.FlowLabel>>16)&0x0f
	out[1] = byte(d.FlowLabel >> 8)
	out[2] = byte(d.FlowLabel)
	binary.BigEndian.PutUint16(out[4:6], uint16(len(tail)))
	out[6] = byte(s.Protocol)
	out[7] = d.TTL
	copy(out[8:24], s.SrcAddr)
	copy(out[24:40], s.DstAddr)
	return append(out, tail...)
}

// ipv4Checksum computes the standard ones-complement checksum over an
// IPv4 header with its checksum field currently zeroed.
func ipv4Checksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		if i == 10 {
			continue // checksum field itself
		}
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
