package rohcwire

// PacketKind is the closed set of ROHC packet-type variants this module
// emits/parses (spec §4.4 step 5's IR/IR-DYN/UO-0/UO-1/UOR-2 families,
// collapsed to one representative per size tier — see DESIGN.md's Open
// Questions and compressor's buildUOR2 for why the Extension 0-3 suffix
// machinery is replaced by an explicit width octet).
type PacketKind int

const (
	KindIR PacketKind = iota
	KindIRDyn
	KindSegment
	KindUO0
	KindUO1
	KindUOR2
)

func (k PacketKind) String() string {
	switch k {
	case KindIR:
		return "IR"
	case KindIRDyn:
		return "IR-DYN"
	case KindSegment:
		return "Segment"
	case KindUO0:
		return "UO-0"
	case KindUO1:
		return "UO-1"
	case KindUOR2:
		return "UOR-2"
	default:
		return "unknown"
	}
}

// IdentifyKind classifies a ROHC packet's first octet (after any CID
// prefix has already been stripped) into its PacketKind, per the Prefix
// constants in wire.go.
func IdentifyKind(first byte) (PacketKind, bool) {
	switch {
	case first == PrefixIR:
		return KindIR, true
	case first == PrefixIRDyn:
		return KindIRDyn, true
	case first == PrefixSegment:
		return KindSegment, true
	case first&PrefixUO0Mask == 0:
		return KindUO0, true
	case first&PrefixUO1Mask == PrefixUO1:
		return KindUO1, true
	case first&PrefixUOR2Mask == PrefixUOR2:
		return KindUOR2, true
	default:
		return 0, false
	}
}
