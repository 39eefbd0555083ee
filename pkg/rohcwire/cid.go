package rohcwire

import (
	"github.com/barvaux/gorohc/pkg/rohcerr"
	"github.com/barvaux/gorohc/pkg/sdvl"
)

// addCIDPrefix/addCIDMask identify the Add-CID octet by its top nibble
// (spec §6's wire-format table: "Add-CID: 1110 cid[3:0]").
const (
	addCIDPrefix = 0xe0
	addCIDMask   = 0xf0
)

// ExtractCID strips a leading CID prefix from packet, per the
// decompressor's step 1 (spec §4.5): an Add-CID octet (`1110xxxx`)
// yields a small nonzero CID, a leading SDVL integer (when large is
// true) yields a large CID, and otherwise the CID is implicitly 0.
func ExtractCID(packet []byte, large bool) (cid uint16, rest []byte, err error) {
	if len(packet) == 0 {
		return 0, nil, rohcerr.Malformed("rohcwire: empty packet", nil)
	}
	if packet[0]&addCIDMask == addCIDPrefix {
		return uint16(packet[0] & 0x0f), packet[1:], nil
	}
	if large {
		v, n, err := sdvl.Decode(packet)
		if err != nil {
			return 0, nil, err
		}
		return uint16(v), packet[n:], nil
	}
	return 0, packet, nil
}
