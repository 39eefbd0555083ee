package compressor

import (
	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohccrc"
	"github.com/barvaux/gorohc/pkg/rohcwire"
	"github.com/barvaux/gorohc/pkg/scaledts"
	"github.com/barvaux/gorohc/pkg/wlsb"
)

// buildPacket selects and serializes the packet type for ctx's current
// state, per spec §4.4 steps 5-6: IR carries the full static+dynamic
// chain, FO carries the dynamic chain only (IR-DYN), SO carries just the
// LSBs of SN (and, for RTP when TS is not SN-deducible, the full or
// TS_SCALED timestamp) in the smallest UO tier that resolves unambiguously against
// the flow's W-LSB window — the tie-break spec §4.4 names ("prefer the
// smallest type that suffices").
func buildPacket(ctx *Context, v ipview.View, sn uint16) ([]byte, error) {
	var core []byte
	switch ctx.state {
	case IR:
		core = buildIR(ctx, v, sn)
	case FO:
		core = buildIRDyn(ctx, v, sn)
	default:
		core = buildUO(ctx, v, sn)
	}
	// The ROHC packet carries the compressed header plus the
	// application-layer payload; the transport header this profile
	// understands (UDP/RTP/ESP/UDP-Lite ports, SSRC, SN, ...) is itself
	// folded into the static/dynamic chains above instead of riding
	// uncompressed (spec §4.6 dynamic fields).
	return append(core, ctx.Profile.AppPayload(v)...), nil
}

func buildIR(ctx *Context, v ipview.View, sn uint16) []byte {
	id := ctx.Profile.ID()
	static := ctx.Profile.Static(v)
	dynamic := ctx.Profile.Dynamic(v)

	out := []byte{rohcwire.PrefixIR, byte(id)}
	out = append(out, rohcwire.EncodeStatic(id, static)...)
	out = append(out, rohcwire.EncodeDynamic(id, static.Version, dynamic)...)
	out = append(out, byte(sn>>8), byte(sn))

	crc := rohccrc.New(rohccrc.Width8).Compute(rohccrc.HeaderFields(id, v))
	return append(out, crc)
}

func buildIRDyn(ctx *Context, v ipview.View, sn uint16) []byte {
	id := ctx.Profile.ID()
	static := ctx.Profile.Static(v)
	dynamic := ctx.Profile.Dynamic(v)

	out := []byte{rohcwire.PrefixIRDyn, byte(id)}
	out = append(out, rohcwire.EncodeDynamic(id, static.Version, dynamic)...)
	out = append(out, byte(sn>>8), byte(sn))

	crc := rohccrc.New(rohccrc.Width7).Compute(rohccrc.HeaderFields(id, v))
	return append(out, crc)
}

// RTP TS field modes carried in a UOR-2 packet (spec §4.5/§4.10's scaled-
// timestamp requirement): tsModeNone means the decompressor can deduce TS
// purely from the SN delta once TS_STRIDE is learned (spec §8: "after
// INIT_STRIDE the TS becomes deducible from SN so TS bits vanish from the
// wire"); tsModeScaled carries the TS_SCALED LSBs (plus TS_STRIDE/
// TS_OFFSET, in every such packet) once a stride is learned but this packet isn't
// itself deducible; tsModeFull carries the raw 32-bit timestamp before any
// stride has been learned.
const (
	tsModeNone byte = iota
	tsModeFull
	tsModeScaled
)

// rtpTSMode decides, for the packet currently being built, how its RTP
// timestamp should ride the wire. It is evaluated against ctx.scaledTS's
// state as of the PREVIOUS committed packet (Update runs in commit, after
// buildPacket), mirroring the same encode-before-commit lag the SN window
// observes, so scaledts.Scale/MinBits take the current ts explicitly
// rather than reading ctx.scaledTS's own tsScaled.
func rtpTSMode(ctx *Context, ts uint32) (mode byte, scaled, stride, offset uint32, k uint) {
	if ctx.Profile.ID() != profile.RTP || ctx.scaledTS.State() != scaledts.SendScaled {
		return tsModeFull, 0, 0, 0, 0
	}
	stride, offset = ctx.scaledTS.Stride(), ctx.scaledTS.Offset()
	scaled = scaledts.Scale(ts, stride, offset)
	if ctx.scaledTS.IsDeducible() {
		return tsModeNone, scaled, stride, offset, 0
	}
	k, ok := ctx.scaledTS.MinBits(scaled)
	if !ok {
		k = 32
	}
	return tsModeScaled, scaled, stride, offset, k
}

func buildUO(ctx *Context, v ipview.View, sn uint16) []byte {
	id := ctx.Profile.ID()
	dynamic := ctx.Profile.Dynamic(v)

	k, ok := ctx.snWindow.MinK(uint32(sn), wlsb.ShiftSN)
	if !ok {
		k = 16
	}
	mode, scaled, stride, offset, tsK := rtpTSMode(ctx, dynamic.Timestamp)
	// UO-0/UO-1 have no room for a TS field; any RTP packet that needs one
	// (full or scaled) must take the wider UOR-2 tier.
	wide := ctx.Profile.ID() == profile.RTP && mode != tsModeNone

	switch {
	case k <= 4 && !wide:
		return buildUO0(id, v, sn, k)
	case k <= 6 && !wide:
		return buildUO1(id, v, sn, k)
	default:
		return buildUOR2(id, v, sn, k, dynamic.Timestamp, mode, scaled, stride, offset, tsK)
	}
}

// buildUO0 is the 1-octet minimal packet: top bit 0, 4-bit SN LSB, 3-bit
// CRC-3.
func buildUO0(id profile.ID, v ipview.View, sn uint16, k uint) []byte {
	mask := uint16(1)<<4 - 1
	snBits := byte(sn & mask)
	crc := rohccrc.New(rohccrc.Width3).Compute(rohccrc.HeaderFields(id, v))
	return []byte{(snBits << 3) | (crc & 0x07)}
}

// buildUO1 is the 2-octet packet: top 2 bits "10", 6-bit SN LSB, then a
// byte carrying CRC-3 in its top 3 bits.
func buildUO1(id profile.ID, v ipview.View, sn uint16, k uint) []byte {
	mask := uint16(1)<<6 - 1
	snBits := byte(sn & mask)
	crc := rohccrc.New(rohccrc.Width3).Compute(rohccrc.HeaderFields(id, v))
	return []byte{rohcwire.PrefixUO1 | snBits, crc << 5}
}

// buildUOR2 is the widest UO tier: top 3 bits "110", 5 inline SN-LSB
// bits, an explicit byte giving how many extra SN-LSB bits follow (this
// package's resolution of the Extension 0-3 suffix ambiguity — see
// DESIGN.md's Open Questions), the extra SN bits themselves, a TS mode byte
// (tsModeNone/tsModeFull/tsModeScaled) and whatever TS payload that mode
// calls for, and a trailing CRC-7 byte.
func buildUOR2(id profile.ID, v ipview.View, sn uint16, k uint, ts uint32, mode byte, scaled, stride, offset uint32, tsK uint) []byte {
	inlineBits := uint(5)
	snBits := byte(sn) & byte(1<<inlineBits-1)
	out := []byte{rohcwire.PrefixUOR2 | snBits}

	extraBits := uint(0)
	if k > inlineBits {
		extraBits = k - inlineBits
	}
	extraByteCount := (extraBits + 7) / 8
	out = append(out, byte(extraByteCount))
	extraVal := uint32(sn) >> inlineBits
	for i := uint(0); i < extraByteCount; i++ {
		shift := 8 * (extraByteCount - 1 - i)
		out = append(out, byte(extraVal>>shift))
	}

	if id != profile.RTP {
		mode = tsModeNone
	}
	out = append(out, mode)
	switch mode {
	case tsModeFull:
		out = append(out, byte(ts>>24), byte(ts>>16), byte(ts>>8), byte(ts))
	case tsModeScaled:
		out = append(out, byte(stride>>24), byte(stride>>16), byte(stride>>8), byte(stride))
		out = append(out, byte(offset>>24), byte(offset>>16), byte(offset>>8), byte(offset))
		out = append(out, byte(tsK))
		scaledByteCount := (tsK + 7) / 8
		for i := uint(0); i < scaledByteCount; i++ {
			shift := 8 * (scaledByteCount - 1 - i)
			out = append(out, byte(scaled>>shift))
		}
	}

	crc := rohccrc.New(rohccrc.Width7).Compute(rohccrc.HeaderFields(id, v))
	return append(out, crc)
}
