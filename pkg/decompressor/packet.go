package decompressor

import (
	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohccrc"
	"github.com/barvaux/gorohc/pkg/rohcerr"
	"github.com/barvaux/gorohc/pkg/rohcwire"
	"github.com/barvaux/gorohc/pkg/scaledts"
	"github.com/barvaux/gorohc/pkg/wlsb"
)

// RTP TS field modes a UOR-2 packet's TS byte carries; mirrors
// compressor's tsModeNone/tsModeFull/tsModeScaled constants (the two
// packages don't share the enum directly since neither imports the other).
const (
	tsModeNone byte = iota
	tsModeFull
	tsModeScaled
)

// decoded is the tentative delta a single packet parse produces, before
// CRC verification gates whether it is committed (spec §4.5 steps 4-7).
type decoded struct {
	kind     rohcwire.PacketKind
	static   profile.StaticFields
	dynamic  profile.DynamicFields
	sn       uint16
	full     []byte // application-layer payload, transport header stripped
	crcByte  byte
	crcWidth rohccrc.Width
	lsbK     uint // number of SN-LSB bits this packet carried, for CRC repair
}

func parseIR(ctx *Context, body []byte) (decoded, error) {
	if len(body) < 2 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated IR packet", nil)
	}
	id := profile.ID(body[1])
	if id != ctx.Profile.ID() {
		return decoded{}, rohcerr.Malformed("decompressor: IR profile mismatch for context", nil)
	}

	// Static chain's address length is ambiguous without knowing the IP
	// version first; the version octet is the static chain's first byte.
	if len(body) < 3 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated IR static chain", nil)
	}
	version := int(body[2])
	addrLen := 4
	if version == 6 {
		addrLen = 16
	}

	static, n, err := rohcwire.DecodeStatic(id, body[2:], addrLen)
	if err != nil {
		return decoded{}, err
	}
	off := 2 + n

	dynamic, n2, err := rohcwire.DecodeDynamic(id, version, body[off:])
	if err != nil {
		return decoded{}, err
	}
	off += n2

	if len(body[off:]) < 3 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated IR trailer", nil)
	}
	sn := uint16(body[off])<<8 | uint16(body[off+1])
	crc := body[off+2]
	tail := body[off+3:]

	return decoded{
		kind: rohcwire.KindIR, static: static, dynamic: dynamic, sn: sn,
		full: tail, crcByte: crc, crcWidth: rohccrc.Width8, lsbK: 16,
	}, nil
}

func parseIRDyn(ctx *Context, body []byte) (decoded, error) {
	if !ctx.haveRef {
		return decoded{}, rohcerr.NoContext("decompressor: IR-DYN before any IR established the static chain", nil)
	}
	id := profile.ID(body[1])
	version := ctx.reference.Version

	dynamic, n, err := rohcwire.DecodeDynamic(id, version, body[2:])
	if err != nil {
		return decoded{}, err
	}
	off := 2 + n
	if len(body[off:]) < 3 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated IR-DYN trailer", nil)
	}
	sn := uint16(body[off])<<8 | uint16(body[off+1])
	crc := body[off+2]
	tail := body[off+3:]

	return decoded{
		kind: rohcwire.KindIRDyn, static: ctx.reference, dynamic: dynamic, sn: sn,
		full: tail, crcByte: crc, crcWidth: rohccrc.Width7, lsbK: 16,
	}, nil
}

// inferIPID updates dynamic's outer IPv4 identification field from the
// just-resolved SN, per spec §4.5 step 6's "inferred from SN" fields: an
// IPv4 datagram's ID field is incremented by the sender once per packet
// alongside whatever field a profile transmits as its own SN, so once SN
// is known the outer IP-ID can be reconstructed the same way regardless
// of which field actually drives that profile's W-LSB encoding.
func inferIPID(ctx *Context, dynamic *profile.DynamicFields, sn uint16) {
	if ctx.reference.Version == 4 {
		dynamic.IPID = sn
	}
}

func parseUO(ctx *Context, body []byte) (decoded, error) {
	if !ctx.haveRef {
		return decoded{}, rohcerr.NoContext("decompressor: UO packet with no established context", nil)
	}
	first := body[0]
	dynamic := ctx.refDynamic

	switch {
	case first&rohcwire.PrefixUO0Mask == 0:
		if len(body) < 1 {
			return decoded{}, rohcerr.Malformed("decompressor: truncated UO-0", nil)
		}
		snBits := uint32(first >> 3)
		crc := first & 0x07
		sn, ok := wlsb.Decode(uint32(ctx.lastSN), 4, snBits, wlsb.ShiftSN, 16)
		if !ok {
			return decoded{}, rohcerr.Malformed("decompressor: UO-0 LSB decode failed", nil)
		}
		ctx.Profile.SetSN(&dynamic, uint16(sn))
		inferIPID(ctx, &dynamic, uint16(sn))
		if ctx.Profile.ID() == profile.RTP {
			dynamic.Timestamp += uint32(uint16(sn)-ctx.lastSN) * ctx.scaledTS.Stride()
		}
		return decoded{
			kind: rohcwire.KindUO0, static: ctx.reference, dynamic: dynamic,
			sn: uint16(sn), full: body[1:], crcByte: crc, crcWidth: rohccrc.Width3, lsbK: 4,
		}, nil

	case first&rohcwire.PrefixUO1Mask == rohcwire.PrefixUO1:
		if len(body) < 2 {
			return decoded{}, rohcerr.Malformed("decompressor: truncated UO-1", nil)
		}
		snBits := uint32(first & 0x3f)
		crc := body[1] >> 5
		sn, ok := wlsb.Decode(uint32(ctx.lastSN), 6, snBits, wlsb.ShiftSN, 16)
		if !ok {
			return decoded{}, rohcerr.Malformed("decompressor: UO-1 LSB decode failed", nil)
		}
		ctx.Profile.SetSN(&dynamic, uint16(sn))
		inferIPID(ctx, &dynamic, uint16(sn))
		if ctx.Profile.ID() == profile.RTP {
			dynamic.Timestamp += uint32(uint16(sn)-ctx.lastSN) * ctx.scaledTS.Stride()
		}
		return decoded{
			kind: rohcwire.KindUO1, static: ctx.reference, dynamic: dynamic,
			sn: uint16(sn), full: body[2:], crcByte: crc, crcWidth: rohccrc.Width3, lsbK: 6,
		}, nil

	case first&rohcwire.PrefixUOR2Mask == rohcwire.PrefixUOR2:
		return parseUOR2(ctx, body, dynamic)

	default:
		return decoded{}, rohcerr.Malformed("decompressor: unrecognized packet prefix", nil)
	}
}

func parseUOR2(ctx *Context, body []byte, dynamic profile.DynamicFields) (decoded, error) {
	if len(body) < 2 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2", nil)
	}
	inlineBits := uint32(5)
	snBits := uint32(body[0] & 0x1f)
	extraByteCount := int(body[1])
	off := 2
	if len(body) < off+extraByteCount {
		return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2 SN extension", nil)
	}
	k := inlineBits
	var extra uint32
	for i := 0; i < extraByteCount; i++ {
		extra = extra<<8 | uint32(body[off+i])
		k += 8
	}
	off += extraByteCount
	full := snBits | extra<<inlineBits

	if len(body) < off+1 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2 TS flag", nil)
	}
	tsMode := body[off]
	off++

	var scaledBits uint32
	var scaledK uint
	var stride, offset uint32
	switch tsMode {
	case tsModeFull:
		if len(body) < off+4 {
			return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2 TS field", nil)
		}
		dynamic.Timestamp = uint32(body[off])<<24 | uint32(body[off+1])<<16 | uint32(body[off+2])<<8 | uint32(body[off+3])
		off += 4
	case tsModeScaled:
		if len(body) < off+9 {
			return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2 TS_SCALED header", nil)
		}
		stride = uint32(body[off])<<24 | uint32(body[off+1])<<16 | uint32(body[off+2])<<8 | uint32(body[off+3])
		offset = uint32(body[off+4])<<24 | uint32(body[off+5])<<16 | uint32(body[off+6])<<8 | uint32(body[off+7])
		scaledK = uint(body[off+8])
		off += 9
		scaledByteCount := int((scaledK + 7) / 8)
		if len(body) < off+scaledByteCount {
			return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2 TS_SCALED value", nil)
		}
		for i := 0; i < scaledByteCount; i++ {
			scaledBits = scaledBits<<8 | uint32(body[off+i])
		}
		off += scaledByteCount
		ctx.scaledTS.SetStride(stride, offset)
	}

	if len(body) < off+1 {
		return decoded{}, rohcerr.Malformed("decompressor: truncated UOR-2 CRC", nil)
	}
	crc := body[off]
	tail := body[off+1:]

	sn, ok := wlsb.Decode(uint32(ctx.lastSN), uint(k), full, wlsb.ShiftSN, 16)
	if !ok {
		return decoded{}, rohcerr.Malformed("decompressor: UOR-2 LSB decode failed", nil)
	}
	ctx.Profile.SetSN(&dynamic, uint16(sn))
	inferIPID(ctx, &dynamic, uint16(sn))

	// TS is resolved against the reference timestamp (dynamic.Timestamp
	// still holds it here), which every committed IR, IR-DYN and UO packet
	// refreshes.
	if ctx.Profile.ID() == profile.RTP {
		switch tsMode {
		case tsModeNone:
			delta := uint32(uint16(sn) - ctx.lastSN)
			dynamic.Timestamp += delta * ctx.scaledTS.Stride()
		case tsModeScaled:
			ref := scaledts.Scale(dynamic.Timestamp, stride, offset)
			if scaled, ok := wlsb.Decode(ref, scaledK, scaledBits, wlsb.ShiftTS(scaledK), 32); ok {
				dynamic.Timestamp = scaledts.Unscale(scaled, stride, offset)
			}
		}
	}

	return decoded{
		kind: rohcwire.KindUOR2, static: ctx.reference, dynamic: dynamic,
		sn: uint16(sn), full: tail, crcByte: crc, crcWidth: rohccrc.Width7, lsbK: uint(k),
	}, nil
}

// verify reconstructs the candidate header, re-parses it to get a view
// rohccrc.HeaderFields can be computed over, and compares against the
// CRC byte carried on the wire.
func verify(id profile.ID, d decoded) (ipview.View, bool) {
	candidate := reconstruct(id, d.static, d.dynamic, d.full)
	v := ipview.Parse(candidate)
	if v.Kind() != ipview.V4 && v.Kind() != ipview.V6 {
		return v, false
	}
	ok := rohccrc.New(d.crcWidth).Verify(rohccrc.HeaderFields(id, v), d.crcByte)
	return v, ok
}
