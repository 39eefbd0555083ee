package decompressor_test

import (
	"encoding/binary"
	"testing"

	"github.com/barvaux/gorohc/pkg/compressor"
	"github.com/barvaux/gorohc/pkg/decompressor"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohcwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ipv4ChecksumForTest mirrors reconstructIPv4's checksum computation, so
// a test fixture's "original" packet already carries the same checksum
// reconstruction will recompute — exactly what a real IP stack would
// have put there, and the only way a byte-for-byte round-trip
// comparison can hold (spec §8's checksum carve-out recomputes rather
// than preserves the original's checksum field verbatim).
func ipv4ChecksumForTest(header []byte) uint16 {
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
	binary.BigEndian.PutUint16(b[10:12], ipv4ChecksumForTest(b[:20]))
	copy(b[20:], udp)
	return b
}

func newPair(t *testing.T) (*compressor.Compressor, *decompressor.Decompressor) {
	t.Helper()
	c := compressor.New(compressor.Config{WindowWidth: 4, MaxCID: 8, Mode: compressor.Optimistic})
	c.EnableProfile(profile.UDPProfile{})
	d := decompressor.New(decompressor.Config{WindowWidth: 4, MaxCID: 8, Mode: decompressor.Optimistic})
	d.EnableProfile(profile.UDPProfile{})
	return c, d
}

func TestRoundTripAcrossIRFOAndSO(t *testing.T) {
	c, d := newPair(t)

	for i := uint16(0); i < 40; i++ {
		orig := buildIPv4UDP(i, 1000, 2000, []byte("payload"))
		wire, err := c.Compress(orig)
		require.NoError(t, err)

		back, err := d.Decompress(wire)
		require.NoError(t, err)
		assert.Equal(t, orig, back, "packet %d must round-trip byte for byte", i)
	}

	ctx, ok := d.Context(0)
	require.True(t, ok)
	assert.Equal(t, decompressor.FC, ctx.State(), "after many successful decodes the context should be full-context")
	assert.Zero(t, ctx.Stats().CRCFailures)
}

func TestUnknownContextRejectsNonIR(t *testing.T) {
	_, d := newPair(t)

	// A UO-0 packet (top bit 0) addressed to a context that was never
	// established by an IR.
	_, err := d.Decompress([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestTruncatedIRIsRejectedNotPanicking(t *testing.T) {
	_, d := newPair(t)

	assert.NotPanics(t, func() {
		_, err := d.Decompress([]byte{0xFD})
		assert.Error(t, err)
	})
}

func TestEmptyPacketBodyIsRejected(t *testing.T) {
	_, d := newPair(t)
	// An Add-CID octet with nothing after it leaves an empty body.
	_, err := d.Decompress([]byte{0xE1})
	assert.Error(t, err)
}

func buildRTP(sn uint16, ts uint32, ssrc uint32, marker bool, payload []byte) []byte {
	rtp := make([]byte, 12+len(payload))
	rtp[0] = 0x80 // version 2, no CSRC
	if marker {
		rtp[1] = 0x80
	}
	rtp[1] |= 96 // payload type
	binary.BigEndian.PutUint16(rtp[2:4], sn)
	binary.BigEndian.PutUint32(rtp[4:8], ts)
	binary.BigEndian.PutUint32(rtp[8:12], ssrc)
	copy(rtp[12:], payload)

	udp := make([]byte, 8+len(rtp))
	binary.BigEndian.PutUint16(udp[0:2], 6000)
	binary.BigEndian.PutUint16(udp[2:4], 5004)
	binary.BigEndian.PutUint16(udp[4:6], uint16(len(udp)))
	copy(udp[8:], rtp)

	total := 20 + len(udp)
	b := make([]byte, total)
	b[0] = 0x45
	binary.BigEndian.PutUint16(b[2:4], uint16(total))
	binary.BigEndian.PutUint16(b[4:6], sn)
	b[8] = 64
	b[9] = 17
	copy(b[12:16], []byte{192, 0, 2, 1})
	copy(b[16:20], []byte{192, 0, 2, 2})
	binary.BigEndian.PutUint16(b[10:12], ipv4ChecksumForTest(b[:20]))
	copy(b[20:], udp)
	return b
}

func TestRoundTripRTPWithLinearTimestamp(t *testing.T) {
	c := compressor.New(compressor.Config{WindowWidth: 4, MaxCID: 8, Mode: compressor.Optimistic})
	c.EnableProfile(profile.NewRTPProfile(5004))
	d := decompressor.New(decompressor.Config{WindowWidth: 4, MaxCID: 8, Mode: decompressor.Optimistic})
	d.EnableProfile(profile.NewRTPProfile(5004))

	const ssrc = 0xCAFEBABE
	for i := uint16(0); i < 30; i++ {
		orig := buildRTP(i, 1000+uint32(i)*160, ssrc, i%10 == 0, []byte("audio-frame"))
		wire, err := c.Compress(orig)
		require.NoError(t, err)

		back, err := d.Decompress(wire)
		require.NoError(t, err)
		assert.Equal(t, orig, back, "RTP packet %d must round-trip byte for byte", i)
	}
}

// TestRoundTripRTPEntersScaledTSMode drives a TS_STRIDE that settles
// (four packets of a constant 160-tick delta enter SEND_SCALED), then
// has one packet's SN jump by 2 while TS advances by only one stride
// tick — the same "drops a packet's SN but the audio clock keeps
// ticking" shape a lost packet produces. That one packet breaks
// IsDeducible, so the very next UOR-2 must carry TS_STRIDE/TS_OFFSET
// and a TS_SCALED field instead of omitting TS entirely, exercising the
// decompressor's TS_SCALED decoding outside a direct scaledts unit test.
func TestRoundTripRTPEntersScaledTSMode(t *testing.T) {
	c := compressor.New(compressor.Config{WindowWidth: 4, MaxCID: 8, Mode: compressor.Optimistic})
	c.EnableProfile(profile.NewRTPProfile(5004))
	d := decompressor.New(decompressor.Config{WindowWidth: 4, MaxCID: 8, Mode: decompressor.Optimistic})
	d.EnableProfile(profile.NewRTPProfile(5004))

	const ssrc = 0xCAFEBABE
	type step struct {
		sn uint16
		ts uint32
	}
	// sn 4 is skipped: ts still advances by exactly one 160 stride tick,
	// so TS_STRIDE learning isn't disturbed, but the SN delta (2) no
	// longer matches the scaled TS delta (1).
	steps := []step{
		{0, 1000}, {1, 1160}, {2, 1320}, {3, 1480},
		{5, 1640}, {6, 1800}, {7, 1960},
	}
	for _, st := range steps {
		orig := buildRTP(st.sn, st.ts, ssrc, false, []byte("audio-frame"))
		wire, err := c.Compress(orig)
		require.NoError(t, err)

		back, err := d.Decompress(wire)
		require.NoError(t, err, "sn=%d ts=%d must decode even once TS is no longer SN-deducible", st.sn, st.ts)
		assert.Equal(t, orig, back, "sn=%d ts=%d must round-trip byte for byte", st.sn, st.ts)
	}
}

func TestFeedbackIsQueuedInOptimisticMode(t *testing.T) {
	c, d := newPair(t)
	orig := buildIPv4UDP(0, 1000, 2000, []byte("x"))
	wire, err := c.Compress(orig)
	require.NoError(t, err)
	_, err = d.Decompress(wire)
	require.NoError(t, err)

	assert.Positive(t, d.Feedback().Len(), "optimistic mode should queue an ACK after a successful decode")
}

func TestSegmentReassemblyRecoversAPacketSplitAcrossFragments(t *testing.T) {
	c := compressor.New(compressor.Config{WindowWidth: 4, MaxCID: 8})
	c.EnableProfile(profile.UDPProfile{})
	d := decompressor.New(decompressor.Config{WindowWidth: 4, MaxCID: 8, MRRU: 128})
	d.EnableProfile(profile.UDPProfile{})

	orig := buildIPv4UDP(0, 1000, 2000, []byte("hello"))
	wire, err := c.Compress(orig)
	require.NoError(t, err)
	require.True(t, len(wire) >= 2, "need at least two bytes to split into two fragments")

	split := len(wire) / 2
	first := append([]byte{rohcwire.PrefixSegment, 0x00}, wire[:split]...)
	last := append([]byte{rohcwire.PrefixSegment, 0x01}, wire[split:]...)

	out, err := d.Decompress(first)
	require.NoError(t, err)
	assert.Nil(t, out, "a non-final fragment has nothing to return yet")

	back, err := d.Decompress(last)
	require.NoError(t, err)
	assert.Equal(t, orig, back)
}

func TestSegmentReassemblyRejectsRRUOverMRRU(t *testing.T) {
	d := decompressor.New(decompressor.Config{WindowWidth: 4, MaxCID: 8, MRRU: 4})

	oversized := append([]byte{rohcwire.PrefixSegment, 0x01}, make([]byte, 5)...)
	_, err := d.Decompress(oversized)
	assert.Error(t, err)
}
