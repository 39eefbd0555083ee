package profile

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/ipview"
)

const protoUDP = 17

// udpHeader is the 8-octet fixed UDP header: source port, destination
// port, length, checksum.
type udpHeader struct {
	srcPort, dstPort uint16
	length           uint16
	checksum         uint16
}

func parseUDP(payload []byte) (udpHeader, bool) {
	if len(payload) < 8 {
		return udpHeader{}, false
	}
	return udpHeader{
		srcPort:  binary.BigEndian.Uint16(payload[0:2]),
		dstPort:  binary.BigEndian.Uint16(payload[2:4]),
		length:   binary.BigEndian.Uint16(payload[4:6]),
		checksum: binary.BigEndian.Uint16(payload[6:8]),
	}, true
}

func checksumMode(h udpHeader) ChecksumMode {
	if h.checksum == 0 {
		return ChecksumZero
	}
	return ChecksumVerbatim
}

// UDPProfile compresses UDP/IP (spec §4.6 row "UDP"): static chain adds
// the port pair on top of IP-only's static fields, dynamic chain adds
// the checksum tri-state (grounded on c_udp.h's udp_context.old_udp.check
// handling, SPEC_FULL §4.6 supplement). SN source remains IP-ID, UDP has
// no sequence number of its own.
type UDPProfile struct{}

func (UDPProfile) ID() ID { return UDP }

func (UDPProfile) CheckApplicability(v ipview.View) bool {
	if !applicableBase(v) || v.GetProtocol() != protoUDP {
		return false
	}
	_, ok := parseUDP(v.Payload())
	return ok
}

func (UDPProfile) GetSN(v ipview.View) (uint32, bool) {
	if v.Kind() == ipview.V4 {
		return uint32(v.IPID()), true
	}
	return 0, false
}

func (UDPProfile) Static(v ipview.View) StaticFields {
	s := staticIPFields(v)
	if h, ok := parseUDP(v.Payload()); ok {
		s.SrcPort, s.DstPort = h.srcPort, h.dstPort
	}
	return s
}

func (UDPProfile) Dynamic(v ipview.View) DynamicFields {
	d := dynamicIPFields(v)
	if h, ok := parseUDP(v.Payload()); ok {
		d.UDPChecksum = h.checksum
		d.UDPChecksumMode = checksumMode(h)
	}
	return d
}

// AppPayload is v's payload with the 8-octet UDP header stripped, since
// UDP's header fields are fully captured in Static/Dynamic.
func (UDPProfile) AppPayload(v ipview.View) []byte {
	p := v.Payload()
	if len(p) < 8 {
		return p
	}
	return p[8:]
}

func (UDPProfile) SetSN(d *DynamicFields, sn uint16) { d.IPID = sn }
