package rohccrc

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
)

// HeaderFields returns the CRC input for the given profile: this module's
// own digest of the uncompressed header fields that participate in
// compression, in a fixed field order, never the raw wire bytes and never
// the ROHC packet itself. It is not the RFC 3095 §5.9.1 octet set. One
// function switching on the profile ID serves every profile, kept next to
// the CRC engines rather than duplicated per profile package.
func HeaderFields(id profile.ID, v ipview.View) []byte {
	var out []byte
	out = appendIPFields(out, v)

	switch id {
	case profile.UDP, profile.RTP:
		out = appendUDPFields(out, v)
		if id == profile.RTP {
			out = appendRTPFields(out, v)
		}
	case profile.ESP:
		out = appendESPFields(out, v)
	case profile.UDPLite:
		out = appendUDPLiteFields(out, v)
	}
	return out
}

func appendIPFields(out []byte, v ipview.View) []byte {
	src, dst := v.Addrs()
	out = append(out, byte(v.GetProtocol()))
	out = append(out, src...)
	out = append(out, dst...)
	out = append(out, v.TTL())
	if v.Kind() == ipview.V4 {
		out = append(out, v.TOS())
		var ipid [2]byte
		binary.BigEndian.PutUint16(ipid[:], v.IPID())
		out = append(out, ipid[:]...)
		if v.DF() {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	} else {
		var fl [4]byte
		binary.BigEndian.PutUint32(fl[:], v.FlowLabel())
		out = append(out, fl[:]...)
	}
	return out
}

func appendUDPFields(out []byte, v ipview.View) []byte {
	p := v.Payload()
	if len(p) >= 8 {
		out = append(out, p[0:8]...)
	}
	return out
}

func appendUDPLiteFields(out []byte, v ipview.View) []byte {
	return appendUDPFields(out, v)
}

func appendRTPFields(out []byte, v ipview.View) []byte {
	p := v.Payload()
	if len(p) >= 20 {
		out = append(out, p[8:20]...)
	}
	return out
}

func appendESPFields(out []byte, v ipview.View) []byte {
	p := v.Payload()
	if len(p) >= 8 {
		out = append(out, p[0:8]...)
	}
	return out
}
