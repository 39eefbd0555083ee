package rohcwire

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/profile"
)

// BuildTransport reconstructs the transport-layer header this profile
// compresses (UDP/RTP/ESP/UDP-Lite, or a tunneled IP-only's inner IP
// header) from s/d, with appPayload as the trailing application bytes,
// per spec §4.5 step 6: header fields are rebuilt from the reference and
// delta chains rather than carried verbatim on the wire.
func BuildTransport(id profile.ID, s profile.StaticFields, d profile.DynamicFields, appPayload []byte) []byte {
	switch id {
	case profile.UDP:
		return buildUDP(s, d, appPayload)
	case profile.RTP:
		return buildUDP(s, d, buildRTP(s, d, appPayload))
	case profile.ESP:
		return buildESP(s, d, appPayload)
	case profile.UDPLite:
		return buildUDPLite(s, d, appPayload)
	default:
		if d.Tunneled {
			return buildInnerIP(s, d, appPayload)
		}
		return appPayload
	}
}

func buildUDP(s profile.StaticFields, d profile.DynamicFields, payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint16(out[0:2], s.SrcPort)
	binary.BigEndian.PutUint16(out[2:4], s.DstPort)
	binary.BigEndian.PutUint16(out[4:6], uint16(8+len(payload)))
	binary.BigEndian.PutUint16(out[6:8], d.UDPChecksum)
	return append(out, payload...)
}

func buildUDPLite(s profile.StaticFields, d profile.DynamicFields, appPayload []byte) []byte {
	out := make([]byte, 8, 8+len(appPayload))
	binary.BigEndian.PutUint16(out[0:2], s.SrcPort)
	binary.BigEndian.PutUint16(out[2:4], s.DstPort)
	binary.BigEndian.PutUint16(out[4:6], d.CoverageLength)
	binary.BigEndian.PutUint16(out[6:8], d.UDPChecksum)
	return append(out, appPayload...)
}

func buildRTP(s profile.StaticFields, d profile.DynamicFields, appPayload []byte) []byte {
	cc := len(d.CSRC)
	out := make([]byte, 12, 12+cc*4+len(appPayload))
	out[0] = 0x80 | byte(cc) // version 2, no padding/extension
	pt := d.PayloadType & 0x7f
	if d.Marker {
		pt |= 0x80
	}
	out[1] = pt
	binary.BigEndian.PutUint16(out[2:4], d.SeqNum)
	binary.BigEndian.PutUint32(out[4:8], d.Timestamp)
	binary.BigEndian.PutUint32(out[8:12], s.SSRC)
	for _, c := range d.CSRC {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], c)
		out = append(out, b[:]...)
	}
	return append(out, appPayload...)
}

func buildESP(s profile.StaticFields, d profile.DynamicFields, appPayload []byte) []byte {
	out := make([]byte, 8, 8+len(appPayload))
	binary.BigEndian.PutUint32(out[0:4], s.SPI)
	binary.BigEndian.PutUint32(out[4:8], d.ESPSeqNum)
	return append(out, appPayload...)
}

// buildInnerIP reconstructs the inner IP header of a two-stack tunnel
// (SPEC_FULL §4.3), mirroring decompressor.reconstruct's outer-header
// logic one level down.
func buildInnerIP(s profile.StaticFields, d profile.DynamicFields, appPayload []byte) []byte {
	if d.InnerVersion != 4 {
		out := make([]byte, 40, 40+len(appPayload))
		out[0] = 0x60 | byte(d.InnerFlowLabel>>16)&0x0f
		out[1] = byte(d.InnerFlowLabel >> 8)
		out[2] = byte(d.InnerFlowLabel)
		binary.BigEndian.PutUint16(out[4:6], uint16(len(appPayload)))
		out[6] = byte(s.InnerProtocol)
		out[7] = d.InnerTTL
		copy(out[8:24], s.InnerSrcAddr)
		copy(out[24:40], s.InnerDstAddr)
		return append(out, appPayload...)
	}

	total := 20 + len(appPayload)
	out := make([]byte, 20, total)
	out[0] = 0x45
	out[1] = d.InnerTOS
	binary.BigEndian.PutUint16(out[2:4], uint16(total))
	binary.BigEndian.PutUint16(out[4:6], d.InnerIPID)
	if d.InnerDF {
		out[6] = 0x40
	}
	out[8] = d.InnerTTL
	out[9] = byte(s.InnerProtocol)
	copy(out[12:16], s.InnerSrcAddr)
	copy(out[16:20], s.InnerDstAddr)
	binary.BigEndian.PutUint16(out[10:12], ipv4Checksum(out))
	return append(out, appPayload...)
}

// ipv4Checksum computes the standard ones-complement checksum over an
// IPv4 header with its checksum field currently zeroed.
func ipv4Checksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		if i == 10 {
			continue
		}
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
