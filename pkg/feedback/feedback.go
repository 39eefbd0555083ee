// Package feedback implements the decompressor-to-compressor signalling
// channel of RFC 3095 §5.7.6/§5.7.7: FEEDBACK-1 (a single octet ACK of a
// small SN) and FEEDBACK-2 (a 2-octet base header, ACK/NACK/STATIC-NACK
// type, SN extension options for an SN of up to 32 bits, and option data for context
// memory, clock, jitter and loss), with the CID prepended once the body
// is built.
package feedback

import (
	"github.com/barvaux/gorohc/pkg/rohccrc"
	"github.com/barvaux/gorohc/pkg/rohcerr"
	"github.com/barvaux/gorohc/pkg/sdvl"
)

// AckType is the two-bit acknowledgement kind carried in a FEEDBACK-2
// base header.
type AckType int

const (
	ACK AckType = iota
	NACK
	StaticNACK
	ackReserved
)

// Mode mirrors the three ROHC operating modes a feedback packet can name.
type Mode int

const (
	Unidirectional Mode = iota
	Optimistic
	Reliable
)

// OptionType enumerates the FEEDBACK-2 option type nibble values, resolved
// against original_source/src/decomp/feedback.c's f_add_option: the
// distilled spec names "context memory, clock, jitter, loss" without wire
// codes, so these are taken from the reference implementation's option
// type constants (RFC 3095 §5.7.6.3).
type OptionType int

const (
	OptCRC OptionType = iota + 1
	OptReject
	OptSNNotValid
	OptSN
	OptClock
	OptJitter
	OptLoss
)

// MaxPayloadLen is the largest feedback body (options included, CID
// excluded) RFC 3095 allows before the CID is prepended.
const MaxPayloadLen = 30

// Option is one FEEDBACK-2 option: a type nibble, and 0 or 1 data octets.
// CRC options always carry a 1-byte placeholder that Build2 fills in last.
type Option struct {
	Type OptionType
	Data byte
	// HasData distinguishes a present single zero-valued data byte (e.g.
	// a CRC option before its value is computed) from a data-less option.
	HasData bool
}

// Build1 builds a FEEDBACK-1 body: the low 8 bits of sn.
func Build1(sn uint32) []byte {
	return []byte{byte(sn & 0xff)}
}

// Build2 builds a FEEDBACK-2 body for the given ack type, mode and SN,
// extending the SN into 1-3 extra option octets if it does not fit in the
// base header's 12 bits, per original_source/src/decomp/feedback.c's
// f_feedback2. sn is a uint32, so at most 32 SN bits are carried (the base
// header's 4 bits plus three SN option octets' 24). If crc8OnBidirectional is true (per spec §4.8, mandatory on
// a bidirectional channel), a trailing CRC-8 option is appended and its
// value computed over the body built so far.
func Build2(ackType AckType, mode Mode, sn uint32, crc8OnBidirectional bool, extra ...Option) ([]byte, error) {
	if uint64(sn) >= 1<<36 {
		return nil, rohcerr.ProgrammingError("feedback: sn exceeds 36 bits", nil)
	}
	body := make([]byte, 2, MaxPayloadLen)
	body[0] = byte(ackType&0x3)<<6 | byte(mode&0x3)<<4

	switch {
	case sn < 1<<12:
		body[0] |= byte(sn>>8) & 0xf
		body[1] = byte(sn)
	case sn < 1<<20:
		body[0] |= byte(sn>>16) & 0xf
		body[1] = byte(sn >> 8)
		body = appendOption(body, Option{Type: OptSN, Data: byte(sn), HasData: true})
	case sn < 1<<28:
		body[0] |= byte(sn>>24) & 0xf
		body[1] = byte(sn >> 16)
		body = appendOption(body, Option{Type: OptSN, Data: byte(sn >> 8), HasData: true})
		body = appendOption(body, Option{Type: OptSN, Data: byte(sn), HasData: true})
	default:
		body[1] = byte(sn >> 24)
		body = appendOption(body, Option{Type: OptSN, Data: byte(sn >> 16), HasData: true})
		body = appendOption(body, Option{Type: OptSN, Data: byte(sn >> 8), HasData: true})
		body = appendOption(body, Option{Type: OptSN, Data: byte(sn), HasData: true})
	}

	for _, opt := range extra {
		body = appendOption(body, opt)
	}

	if crc8OnBidirectional {
		crcOffset := len(body)
		body = appendOption(body, Option{Type: OptCRC, HasData: true})
		body[crcOffset+1] = rohccrc.New(rohccrc.Width8).Compute(body)
	}

	if len(body) > MaxPayloadLen {
		return nil, rohcerr.Capacity("feedback: body exceeds 30-octet maximum", nil)
	}
	return body, nil
}

func appendOption(body []byte, opt Option) []byte {
	header := byte(opt.Type&0xf) << 4
	if opt.HasData {
		header |= 1
	}
	body = append(body, header)
	if opt.HasData {
		body = append(body, opt.Data)
	}
	return body
}

// CIDType selects how PrependCID encodes the CID in front of a feedback
// body.
type CIDType int

const (
	SmallCID CIDType = iota
	LargeCID
)

// PrependCID returns body with cid encoded in front of it: nothing for a
// zero small CID, an Add-CID octet (0xE0|cid) for a nonzero small CID, or
// an SDVL-encoded octet sequence for a large CID.
func PrependCID(body []byte, cid uint16, cidType CIDType) ([]byte, error) {
	switch cidType {
	case SmallCID:
		if cid == 0 {
			return body, nil
		}
		if cid > 15 {
			return nil, rohcerr.ProgrammingError("feedback: small CID out of range", nil)
		}
		return append([]byte{0xe0 | byte(cid)}, body...), nil
	case LargeCID:
		enc, err := sdvl.Encode(uint64(cid), 0)
		if err != nil {
			return nil, rohcerr.Malformed("feedback: failed to SDVL-encode large CID", err)
		}
		if len(body)+len(enc) > MaxPayloadLen {
			return nil, rohcerr.Capacity("feedback: body too large once large CID is prepended", nil)
		}
		return append(enc, body...), nil
	default:
		return nil, rohcerr.ProgrammingError("feedback: unknown CID type", nil)
	}
}

// Parsed is the result of Parse: the acknowledgement the decompressor's
// peer sent, with its CID and SN already resolved.
type Parsed struct {
	CID     uint16
	AckType AckType
	Mode    Mode
	SN      uint32
	Options []Option
}

// Parse reads a feedback payload that PrependCID has already had its CID
// stripped from by the caller's CID-dispatch step (see rohcwire.ExtractCID), and
// which is known (from its enclosing FEEDBACK frame length) to be either
// the single FEEDBACK-1 octet or a full FEEDBACK-2 body.
func Parse(body []byte, isFeedback2 bool) (Parsed, error) {
	if !isFeedback2 {
		if len(body) != 1 {
			return Parsed{}, rohcerr.Malformed("feedback: FEEDBACK-1 must be exactly 1 octet", nil)
		}
		return Parsed{AckType: ACK, SN: uint32(body[0])}, nil
	}
	if len(body) < 2 {
		return Parsed{}, rohcerr.Malformed("feedback: FEEDBACK-2 body too short", nil)
	}
	ackType := AckType(body[0] >> 6 & 0x3)
	mode := Mode(body[0] >> 4 & 0x3)
	sn := uint32(body[0]&0xf)<<8 | uint32(body[1])

	var opts []Option
	i := 2
	for i < len(body) {
		optType := OptionType(body[i] >> 4 & 0xf)
		hasData := body[i]&0x1 != 0
		i++
		var data byte
		if hasData {
			if i >= len(body) {
				return Parsed{}, rohcerr.Malformed("feedback: truncated option data", nil)
			}
			data = body[i]
			i++
		}
		if optType == OptSN {
			sn = sn<<8 | uint32(data)
		}
		opts = append(opts, Option{Type: optType, Data: data, HasData: hasData})
	}
	return Parsed{AckType: ackType, Mode: mode, SN: sn, Options: opts}, nil
}
