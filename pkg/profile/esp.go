package profile

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/ipview"
)

const protoESP = 50

// ESPProfile compresses ESP/IP (spec §4.6 row "ESP"): static chain adds
// SPI on top of IP-only's static fields, the ESP sequence number is
// itself the compression SN — there is no separate IP-ID tracking once
// ESP is chosen (grounded on c_esp.c, SPEC_FULL §4.6 supplement). A
// context must re-init (go back to IR) if SPI ever changes, since SPI is
// static, not dynamic.
type ESPProfile struct{}

func (ESPProfile) ID() ID { return ESP }

func (ESPProfile) CheckApplicability(v ipview.View) bool {
	if !applicableBase(v) || v.GetProtocol() != protoESP {
		return false
	}
	return len(v.Payload()) >= 8
}

func (ESPProfile) GetSN(v ipview.View) (uint32, bool) {
	p := v.Payload()
	if len(p) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint32(p[4:8]), true
}

func (ESPProfile) Static(v ipview.View) StaticFields {
	s := staticIPFields(v)
	p := v.Payload()
	if len(p) >= 4 {
		s.SPI = binary.BigEndian.Uint32(p[0:4])
	}
	return s
}

func (ESPProfile) Dynamic(v ipview.View) DynamicFields {
	d := dynamicIPFields(v)
	p := v.Payload()
	if len(p) >= 8 {
		d.ESPSeqNum = binary.BigEndian.Uint32(p[4:8])
	}
	return d
}

// AppPayload is v's payload with the 8-octet SPI+sequence-number ESP
// header stripped; the encrypted payload and trailer ride uncompressed.
func (ESPProfile) AppPayload(v ipview.View) []byte {
	p := v.Payload()
	if len(p) < 8 {
		return p
	}
	return p[8:]
}

func (ESPProfile) SetSN(d *DynamicFields, sn uint16) { d.ESPSeqNum = uint32(sn) }
