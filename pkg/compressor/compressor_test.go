package compressor_test

import (
	"encoding/binary"
	"testing"

	"github.com/barvaux/gorohc/pkg/compressor"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIPv4UDP(sn uint16, srcPort, dstPort uint16, payload []byte) []byte {
	udp := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], dstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(len(udp)))
	copy(udp[8:], payload)

	total := 20 + len(udp)
	b := make([]byte, total)
	b[0] = 0x45
	binary.BigEndian.PutUint16(b[2:4], uint16(total))
	binary.BigEndian.PutUint16(b[4:6], sn)
	b[8] = 64
	b[9] = 17
	copy(b[12:16], []byte{10, 0, 0, 1})
	copy(b[16:20], []byte{10, 0, 0, 2})
	copy(b[20:], udp)
	return b
}

func newCompressor(t *testing.T) *compressor.Compressor {
	t.Helper()
	c := compressor.New(compressor.Config{WindowWidth: 4, MaxCID: 8})
	c.EnableProfile(profile.UDPProfile{})
	c.EnableProfile(profile.IPOnlyProfile{})
	return c
}

func TestFirstPacketOnAFlowIsIR(t *testing.T) {
	c := newCompressor(t)
	pkt := buildIPv4UDP(0, 1000, 2000, []byte("hello"))

	out, err := c.Compress(pkt)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, byte(0xFD), out[0], "first packet on a new flow must be an IR")
}

func TestStateAdvancesToSOOnceWindowFull(t *testing.T) {
	c := newCompressor(t)

	var last []byte
	for i := uint16(0); i < 20; i++ {
		pkt := buildIPv4UDP(i, 1000, 2000, []byte("hello"))
		out, err := c.Compress(pkt)
		require.NoError(t, err)
		last = out
	}
	// By packet 20 the flow should have long since left IR: an SO-state
	// UO packet never starts with the IR prefix.
	assert.NotEqual(t, byte(0xFD), last[0])
}

func TestUnknownPacketIsNotCompressible(t *testing.T) {
	c := newCompressor(t)
	_, err := c.Compress([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
}

func TestDistinctFlowsGetDistinctContexts(t *testing.T) {
	c := newCompressor(t)
	a := buildIPv4UDP(0, 1000, 2000, []byte("a"))
	b := buildIPv4UDP(0, 3000, 4000, []byte("b"))

	outA, err := c.Compress(a)
	require.NoError(t, err)
	outB, err := c.Compress(b)
	require.NoError(t, err)

	// Both are first packets on their own flow, so both are IR once the
	// leading Add-CID octet (present for any nonzero small CID) is
	// stripped off.
	assert.Equal(t, byte(0xFD), stripAddCID(outA))
	assert.Equal(t, byte(0xFD), stripAddCID(outB))
}

func stripAddCID(body []byte) byte {
	if body[0]&0xf0 == 0xe0 {
		return body[1]
	}
	return body[0]
}
