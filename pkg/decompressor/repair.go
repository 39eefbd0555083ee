package decompressor

import (
	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
)

// repairOffsets are the SN-wrap hypotheses attemptRepair tries, each a
// multiple of the LSB field's modulus (spec §4.5's "CRC repair": a CRC
// failure on a UO packet is often an SN that wrapped past the W-LSB
// window's resolution, not genuine corruption).
var repairOffsets = []int{1, -1, 2, -2}

// attemptRepair re-derives dec's SN under each of repairOffsets' nearby
// hypotheses, rebuilding and re-verifying the candidate packet each time,
// and returns the first one whose CRC passes. Only meaningful for UO
// packets: IR/IR-DYN already carry the SN outright, so there is no LSB
// ambiguity for a wrap hypothesis to resolve.
func attemptRepair(id profile.ID, ctx *Context, dec decoded) (ipview.View, uint16, bool) {
	if dec.lsbK == 0 || dec.lsbK >= 16 {
		return ipview.View{}, 0, false
	}
	modulus := int(uint32(1) << dec.lsbK)

	for _, mul := range repairOffsets {
		candidateSN := uint16(int(dec.sn) + mul*modulus)
		dynamic := dec.dynamic
		ctx.Profile.SetSN(&dynamic, candidateSN)
		inferIPID(ctx, &dynamic, candidateSN)

		candidate := decoded{
			kind: dec.kind, static: dec.static, dynamic: dynamic,
			sn: candidateSN, full: dec.full, crcByte: dec.crcByte, crcWidth: dec.crcWidth,
		}
		if v, ok := verify(id, candidate); ok {
			return v, candidateSN, true
		}
	}
	return ipview.View{}, 0, false
}
