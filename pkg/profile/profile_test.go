package profile_test

import (
	"encoding/binary"
	"testing"

	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/stretchr/testify/assert"
)

func buildIPv4UDP(payload []byte) []byte {
	total := 20 + len(payload)
	b := make([]byte, total)
	b[0] = 0x45
	binary.BigEndian.PutUint16(b[2:4], uint16(total))
	b[8] = 64
	b[9] = 17 // UDP
	copy(b[12:16], []byte{192, 168, 1, 1})
	copy(b[16:20], []byte{192, 168, 1, 2})
	copy(b[20:], payload)
	return b
}

func buildUDP(srcPort, dstPort uint16, rest []byte) []byte {
	b := make([]byte, 8+len(rest))
	binary.BigEndian.PutUint16(b[0:2], srcPort)
	binary.BigEndian.PutUint16(b[2:4], dstPort)
	binary.BigEndian.PutUint16(b[4:6], uint16(8+len(rest)))
	copy(b[8:], rest)
	return b
}

func buildRTP(seq uint16, ts, ssrc uint32) []byte {
	b := make([]byte, 12)
	b[0] = 0x80 // version 2, no CSRC
	b[1] = 96   // payload type
	binary.BigEndian.PutUint16(b[2:4], seq)
	binary.BigEndian.PutUint32(b[4:8], ts)
	binary.BigEndian.PutUint32(b[8:12], ssrc)
	return b
}

func TestIPOnlyAppliesAndRejectsFragments(t *testing.T) {
	p := profile.IPOnlyProfile{}
	pkt := buildIPv4UDP(buildUDP(1, 2, nil))
	v := ipview.Parse(pkt)
	assert.True(t, p.CheckApplicability(v))

	pkt[6] = 0x00
	pkt[7] = 0x01 // nonzero fragment offset
	fv := ipview.Parse(pkt)
	assert.False(t, p.CheckApplicability(fv))
}

func TestUDPProfileStaticAndDynamic(t *testing.T) {
	p := profile.UDPProfile{}
	pkt := buildIPv4UDP(buildUDP(5000, 6000, []byte{1, 2, 3}))
	v := ipview.Parse(pkt)
	assert.True(t, p.CheckApplicability(v))

	static := p.Static(v)
	assert.Equal(t, uint16(5000), static.SrcPort)
	assert.Equal(t, uint16(6000), static.DstPort)

	sn, ok := p.GetSN(v)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), sn)
}

func TestRTPProfileAllowListAndSN(t *testing.T) {
	rtpPayload := buildRTP(100, 16000, 0xdeadbeef)
	pkt := buildIPv4UDP(buildUDP(4000, 5004, rtpPayload))
	v := ipview.Parse(pkt)

	p := profile.NewRTPProfile(5004)
	assert.True(t, p.CheckApplicability(v))

	sn, ok := p.GetSN(v)
	assert.True(t, ok)
	assert.Equal(t, uint32(100), sn)

	static := p.Static(v)
	assert.Equal(t, uint32(0xdeadbeef), static.SSRC)

	dyn := p.Dynamic(v)
	assert.Equal(t, uint32(16000), dyn.Timestamp)
}

func TestRTPProfileRejectsNonAllowedPort(t *testing.T) {
	rtpPayload := buildRTP(1, 0, 0)
	pkt := buildIPv4UDP(buildUDP(4000, 9999, rtpPayload))
	v := ipview.Parse(pkt)

	p := profile.NewRTPProfile(5004)
	assert.False(t, p.CheckApplicability(v))
}

func TestESPProfileSNIsSequenceField(t *testing.T) {
	espPayload := make([]byte, 12)
	binary.BigEndian.PutUint32(espPayload[0:4], 0x1234)
	binary.BigEndian.PutUint32(espPayload[4:8], 42)

	b := make([]byte, 20+len(espPayload))
	b[0] = 0x45
	binary.BigEndian.PutUint16(b[2:4], uint16(len(b)))
	b[8] = 64
	b[9] = 50 // ESP
	copy(b[12:16], []byte{10, 0, 0, 1})
	copy(b[16:20], []byte{10, 0, 0, 2})
	copy(b[20:], espPayload)
	v := ipview.Parse(b)

	p := profile.ESPProfile{}
	assert.True(t, p.CheckApplicability(v))
	sn, ok := p.GetSN(v)
	assert.True(t, ok)
	assert.Equal(t, uint32(42), sn)
	assert.Equal(t, uint32(0x1234), p.Static(v).SPI)
}

func TestRegistrySelectsMostSpecific(t *testing.T) {
	r := profile.NewRegistry()
	r.Enable(profile.IPOnlyProfile{})
	r.Enable(profile.UDPProfile{})
	r.Enable(profile.NewRTPProfile(5004))

	rtpPayload := buildRTP(1, 0, 0)
	pkt := buildIPv4UDP(buildUDP(4000, 5004, rtpPayload))
	v := ipview.Parse(pkt)

	p, ok := r.Select(v)
	assert.True(t, ok)
	assert.Equal(t, profile.RTP, p.ID())
}

func TestRegistryFallsBackToIPOnly(t *testing.T) {
	r := profile.NewRegistry()
	r.Enable(profile.IPOnlyProfile{})
	r.Enable(profile.NewRTPProfile(5004))

	pkt := buildIPv4UDP(buildUDP(1, 2, nil))
	v := ipview.Parse(pkt)

	p, ok := r.Select(v)
	assert.True(t, ok)
	assert.Equal(t, profile.IPOnly, p.ID())
}
