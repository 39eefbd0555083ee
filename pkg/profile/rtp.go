package profile

import (
	"encoding/binary"

	"github.com/barvaux/gorohc/pkg/ipview"
)

// rtpHeader is the fixed 12-octet RTP header plus any CSRC entries.
type rtpHeader struct {
	version     byte
	marker      bool
	payloadType byte
	seqNum      uint16
	timestamp   uint32
	ssrc        uint32
	csrc        []uint32
}

func parseRTP(udpPayload []byte) (rtpHeader, bool) {
	if len(udpPayload) < 12 {
		return rtpHeader{}, false
	}
	cc := int(udpPayload[0] & 0x0f)
	need := 12 + cc*4
	if len(udpPayload) < need {
		return rtpHeader{}, false
	}
	h := rtpHeader{
		version:     udpPayload[0] >> 6,
		marker:      udpPayload[1]&0x80 != 0,
		payloadType: udpPayload[1] & 0x7f,
		seqNum:      binary.BigEndian.Uint16(udpPayload[2:4]),
		timestamp:   binary.BigEndian.Uint32(udpPayload[4:8]),
		ssrc:        binary.BigEndian.Uint32(udpPayload[8:12]),
	}
	for i := 0; i < cc; i++ {
		off := 12 + i*4
		h.csrc = append(h.csrc, binary.BigEndian.Uint32(udpPayload[off:off+4]))
	}
	return h, true
}

// RTPProfile compresses RTP/UDP/IP (spec §4.6 row "RTP"): static chain
// adds SSRC on top of UDP's port pair, dynamic chain adds payload type,
// marker, RTP sequence number, timestamp and the CSRC list. SN source is
// the RTP sequence number, not IP-ID.
//
// CheckApplicability requires either IsRTP (a caller-supplied
// acknowledgement callback) or the destination UDP port to be present in
// Ports, per spec §4.6: "either a user-supplied callback ... or that the
// destination UDP port is on a configured RTP-port allow-list."
type RTPProfile struct {
	Ports map[uint16]struct{}
	IsRTP func(udpPayload []byte) bool
}

// NewRTPProfile returns an RTP profile with the given allowed destination
// ports; ports may be nil/empty if IsRTP will be set separately.
func NewRTPProfile(ports ...uint16) *RTPProfile {
	p := &RTPProfile{Ports: make(map[uint16]struct{}, len(ports))}
	for _, port := range ports {
		p.Ports[port] = struct{}{}
	}
	return p
}

func (*RTPProfile) ID() ID { return RTP }

func (p *RTPProfile) CheckApplicability(v ipview.View) bool {
	if !applicableBase(v) || v.GetProtocol() != protoUDP {
		return false
	}
	h, ok := parseUDP(v.Payload())
	if !ok || len(v.Payload()) < 8 {
		return false
	}
	rtpPayload := v.Payload()[8:]
	if _, ok := parseRTP(rtpPayload); !ok {
		return false
	}
	if p.IsRTP != nil && p.IsRTP(rtpPayload) {
		return true
	}
	_, allowed := p.Ports[h.dstPort]
	return allowed
}

func (*RTPProfile) GetSN(v ipview.View) (uint32, bool) {
	_, ok := parseUDP(v.Payload())
	if !ok || len(v.Payload()) < 8 {
		return 0, false
	}
	rh, ok := parseRTP(v.Payload()[8:])
	if !ok {
		return 0, false
	}
	return uint32(rh.seqNum), true
}

func (*RTPProfile) Static(v ipview.View) StaticFields {
	s := staticIPFields(v)
	udpH, _ := parseUDP(v.Payload())
	s.SrcPort, s.DstPort = udpH.srcPort, udpH.dstPort
	if len(v.Payload()) >= 8 {
		if rh, ok := parseRTP(v.Payload()[8:]); ok {
			s.SSRC = rh.ssrc
		}
	}
	return s
}

func (*RTPProfile) Dynamic(v ipview.View) DynamicFields {
	d := dynamicIPFields(v)
	if udpH, ok := parseUDP(v.Payload()); ok {
		d.UDPChecksum = udpH.checksum
		d.UDPChecksumMode = checksumMode(udpH)
	}
	if len(v.Payload()) >= 8 {
		if rh, ok := parseRTP(v.Payload()[8:]); ok {
			d.PayloadType = rh.payloadType
			d.Marker = rh.marker
			d.SeqNum = rh.seqNum
			d.Timestamp = rh.timestamp
			d.CSRC = rh.csrc
		}
	}
	return d
}

// AppPayload is v's payload with the 8-octet UDP header and the RTP
// header (12 fixed octets plus any CSRC entries) stripped, since every
// RTP/UDP header field is captured in Static/Dynamic.
func (*RTPProfile) AppPayload(v ipview.View) []byte {
	p := v.Payload()
	if len(p) < 8 {
		return p
	}
	rtpPayload := p[8:]
	h, ok := parseRTP(rtpPayload)
	if !ok {
		return rtpPayload
	}
	hdrLen := 12 + len(h.csrc)*4
	if hdrLen > len(rtpPayload) {
		return nil
	}
	return rtpPayload[hdrLen:]
}

func (*RTPProfile) SetSN(d *DynamicFields, sn uint16) { d.SeqNum = sn }
