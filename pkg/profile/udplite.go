package profile

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/ipview"
)

const protoUDPLite = 136

// UDPLiteProfile is UDP-Lite/IP (spec §4.6 row "UDP-Lite"): the second
// 16-bit field after the port pair is a coverage length rather than a
// packet length, and its checksum always covers at least the header, so
// it has no present/absent tri-state the way UDPProfile's does.
type UDPLiteProfile struct{}

func (UDPLiteProfile) ID() ID { return UDPLite }

func (UDPLiteProfile) CheckApplicability(v ipview.View) bool {
	if !applicableBase(v) || v.GetProtocol() != protoUDPLite {
		return false
	}
	return len(v.Payload()) >= 8
}

func (UDPLiteProfile) GetSN(v ipview.View) (uint32, bool) {
	if v.Kind() == ipview.V4 {
		return uint32(v.IPID()), true
	}
	return 0, false
}

func (UDPLiteProfile) Static(v ipview.View) StaticFields {
	s := staticIPFields(v)
	p := v.Payload()
	if len(p) >= 4 {
		s.SrcPort = binary.BigEndian.Uint16(p[0:2])
		s.DstPort = binary.BigEndian.Uint16(p[2:4])
	}
	return s
}

func (UDPLiteProfile) Dynamic(v ipview.View) DynamicFields {
	d := dynamicIPFields(v)
	p := v.Payload()
	if len(p) >= 8 {
		d.CoverageLength = binary.BigEndian.Uint16(p[4:6])
		d.UDPChecksum = binary.BigEndian.Uint16(p[6:8])
	}
	return d
}

// AppPayload is v's payload with the 8-octet UDP-Lite header stripped.
func (UDPLiteProfile) AppPayload(v ipview.View) []byte {
	p := v.Payload()
	if len(p) < 8 {
		return p
	}
	return p[8:]
}

func (UDPLiteProfile) SetSN(d *DynamicFields, sn uint16) { d.IPID = sn }
