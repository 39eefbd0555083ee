package feedback

import "github.com/pion/rtcp"

// LossOptions compresses a set of lost sequence numbers into Loss
// options, reusing rtcp.NackPairsFromSequenceNumbers's generic-NACK
// bitmask packing (RFC 4585 §6.2.1) instead of inventing a second
// loss-range encoding: a ROHC endpoint bridging a profile's lost RTP/ESP
// sequence numbers back to the compressor faces exactly the bitmap
// compression problem RTCP NACK already solves. Option.Data holds a
// single octet, so each NackPair's 16-bit PacketID and 16-bit
// LostPackets bitmap is split across four consecutive OptLoss options
// (PacketID high, PacketID low, bitmap high, bitmap low); ParseLossOptions
// regroups them in the same order.
func LossOptions(lost []uint16) []Option {
	pairs := rtcp.NackPairsFromSequenceNumbers(lost)
	opts := make([]Option, 0, len(pairs)*4)
	for _, p := range pairs {
		opts = append(opts,
			Option{Type: OptLoss, HasData: true, Data: byte(p.PacketID >> 8)},
			Option{Type: OptLoss, HasData: true, Data: byte(p.PacketID)},
			Option{Type: OptLoss, HasData: true, Data: byte(p.LostPackets >> 8)},
			Option{Type: OptLoss, HasData: true, Data: byte(p.LostPackets)},
		)
	}
	return opts
}

// ParseLossOptions reassembles NackPairs from the OptLoss options Parse
// collected (in the four-octets-per-pair order LossOptions emits), and
// expands each back into the individual lost sequence numbers via
// rtcp.NackPair.PacketList.
func ParseLossOptions(opts []Option) []uint16 {
	var lost []uint16
	var buf []byte
	for _, o := range opts {
		if o.Type != OptLoss {
			continue
		}
		buf = append(buf, o.Data)
		if len(buf) == 4 {
			pair := rtcp.NackPair{
				PacketID:    uint16(buf[0])<<8 | uint16(buf[1]),
				LostPackets: rtcp.PacketBitmap(uint16(buf[2])<<8 | uint16(buf[3])),
			}
			lost = append(lost, pair.PacketList()...)
			buf = buf[:0]
		}
	}
	return lost
}
