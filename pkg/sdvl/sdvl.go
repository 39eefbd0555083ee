// Package sdvl implements the Self-Describing Variable-Length integer
// codec used for large CIDs, extended-SN feedback options, and the ROHC
// SN carried in some packet types (RFC 3095 §4.5.6).
package sdvl

import "github.com/barvaux/gorohc/pkg/rohcerr"

// MaxValue is the largest integer SDVL can represent: 29 payload bits.
const MaxValue = 1<<29 - 1

// Encode packs v into the shortest SDVL form, or into exactly wantLen
// octets when wantLen is in [1,4]. wantLen == 0 picks the shortest form
// that fits v. Encode fails if v does not fit in wantLen octets, or if v
// exceeds MaxValue.
func Encode(v uint64, wantLen int) ([]byte, error) {
	if v > MaxValue {
		return nil, rohcerr.Malformed("sdvl: value exceeds 29 bits", nil)
	}
	if wantLen == 0 {
		wantLen = shortestLen(v)
	}
	switch wantLen {
	case 1:
		if v > 0x7f {
			return nil, rohcerr.Malformed("sdvl: value does not fit in 1 octet", nil)
		}
		return []byte{byte(v)}, nil
	case 2:
		if v > 0x3fff {
			return nil, rohcerr.Malformed("sdvl: value does not fit in 2 octets", nil)
		}
		return []byte{0x80 | byte(v>>8), byte(v)}, nil
	case 3:
		if v > 0x1fffff {
			return nil, rohcerr.Malformed("sdvl: value does not fit in 3 octets", nil)
		}
		return []byte{0xc0 | byte(v>>16), byte(v >> 8), byte(v)}, nil
	case 4:
		if v > MaxValue {
			return nil, rohcerr.Malformed("sdvl: value does not fit in 4 octets", nil)
		}
		return []byte{0xe0 | byte(v>>24), byte(v >> 16), byte(v >> 8), byte(v)}, nil
	default:
		return nil, rohcerr.ProgrammingError("sdvl: wantLen must be 0..4", nil)
	}
}

func shortestLen(v uint64) int {
	switch {
	case v <= 0x7f:
		return 1
	case v <= 0x3fff:
		return 2
	case v <= 0x1fffff:
		return 3
	default:
		return 4
	}
}

// Decode reads one SDVL integer from the front of b and returns its value
// and how many octets it consumed. Decode fails if b is empty or
// truncated; every first octet starting with 111 introduces the
// four-octet form.
func Decode(b []byte) (value uint64, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, rohcerr.Malformed("sdvl: empty input", nil)
	}
	first := b[0]
	switch {
	case first&0x80 == 0:
		return uint64(first & 0x7f), 1, nil
	case first&0xc0 == 0x80:
		if len(b) < 2 {
			return 0, 0, rohcerr.Malformed("sdvl: truncated 2-octet form", nil)
		}
		return uint64(first&0x3f)<<8 | uint64(b[1]), 2, nil
	case first&0xe0 == 0xc0:
		if len(b) < 3 {
			return 0, 0, rohcerr.Malformed("sdvl: truncated 3-octet form", nil)
		}
		return uint64(first&0x1f)<<16 | uint64(b[1])<<8 | uint64(b[2]), 3, nil
	default:
		// first&0xe0 == 0xe0: 111xxxxx, 29 payload bits.
		if len(b) < 4 {
			return 0, 0, rohcerr.Malformed("sdvl: truncated 4-octet form", nil)
		}
		return uint64(first&0x1f)<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]), 4, nil
	}
}

// Len returns the number of octets Encode(v, 0) would produce.
func Len(v uint64) int { return shortestLen(v) }
