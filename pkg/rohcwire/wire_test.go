package rohcwire_test

import (
	"testing"

	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohcwire"
	"github.com/stretchr/testify/assert"
)

func TestStaticRoundTripRTP(t *testing.T) {
	s := profile.StaticFields{
		Version:  4,
		Protocol: 17,
		SrcAddr:  []byte{1, 2, 3, 4},
		DstAddr:  []byte{5, 6, 7, 8},
		SrcPort:  1000,
		DstPort:  2000,
		SSRC:     0xdeadbeef,
	}
	wire := rohcwire.EncodeStatic(profile.RTP, s)
	got, n, err := rohcwire.DecodeStatic(profile.RTP, wire, 4)
	assert.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, s.Version, got.Version)
	assert.Equal(t, s.Protocol, got.Protocol)
	assert.Equal(t, s.SrcAddr, got.SrcAddr)
	assert.Equal(t, s.DstAddr, got.DstAddr)
	assert.Equal(t, s.SrcPort, got.SrcPort)
	assert.Equal(t, s.DstPort, got.DstPort)
	assert.Equal(t, s.SSRC, got.SSRC)
}

func TestDynamicRoundTripRTP(t *testing.T) {
	d := profile.DynamicFields{
		TTL:         64,
		TOS:         0,
		IPID:        100,
		DF:          true,
		PayloadType: 96,
		Marker:      true,
		SeqNum:      42,
		Timestamp:   16000,
		CSRC:        []uint32{1, 2},
	}
	wire := rohcwire.EncodeDynamic(profile.RTP, 4, d)
	got, n, err := rohcwire.DecodeDynamic(profile.RTP, 4, wire)
	assert.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, d.TTL, got.TTL)
	assert.Equal(t, d.IPID, got.IPID)
	assert.True(t, got.DF)
	assert.Equal(t, d.PayloadType, got.PayloadType)
	assert.True(t, got.Marker)
	assert.Equal(t, d.SeqNum, got.SeqNum)
	assert.Equal(t, d.Timestamp, got.Timestamp)
	assert.Equal(t, d.CSRC, got.CSRC)
}

func TestStaticRoundTripIPOnlyV6(t *testing.T) {
	s := profile.StaticFields{
		Version:  6,
		Protocol: 6,
		SrcAddr:  make([]byte, 16),
		DstAddr:  make([]byte, 16),
	}
	wire := rohcwire.EncodeStatic(profile.IPOnly, s)
	got, n, err := rohcwire.DecodeStatic(profile.IPOnly, wire, 16)
	assert.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, 6, got.Version)
}

func TestDecodeStaticTruncated(t *testing.T) {
	_, _, err := rohcwire.DecodeStatic(profile.IPOnly, []byte{4}, 4)
	assert.Error(t, err)
}
