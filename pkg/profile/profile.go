// Package profile implements RFC 3095's closed profile matrix
// (Uncompressed, IP-only, UDP, RTP, ESP, UDP-Lite) as one struct type per
// profile behind the Profile interface, dispatched through interface
// method calls rather than a C-style function-pointer table.
package profile

import "github.com/barvaux/gorohc/pkg/ipview"

// ID is the IANA-assigned profile number carried on the wire.
type ID uint16

const (
	Uncompressed ID = 0x0000
	RTP          ID = 0x0001
	UDP          ID = 0x0002
	ESP          ID = 0x0003
	IPOnly       ID = 0x0004
	TCP          ID = 0x0006
	UDPLite      ID = 0x0008
)

func (id ID) String() string {
	switch id {
	case Uncompressed:
		return "Uncompressed"
	case RTP:
		return "RTP"
	case UDP:
		return "UDP"
	case ESP:
		return "ESP"
	case IPOnly:
		return "IP-only"
	case TCP:
		return "TCP"
	case UDPLite:
		return "UDP-Lite"
	default:
		return "unknown"
	}
}

// Profile is the capability set spec §3 assigns to every profile:
// applicability testing, SN extraction, and static/dynamic field
// projection against a parsed packet view. CheckContext is left to the
// caller (compressor/ctxtable), since it compares against an existing
// context rather than classifying a bare packet.
type Profile interface {
	ID() ID
	// CheckApplicability reports whether v is a packet this profile can
	// compress, per spec §4.6: fragmented IP and unsupported IP versions
	// are always rejected regardless of profile.
	CheckApplicability(v ipview.View) bool
	// GetSN returns the sequence number this profile uses to drive
	// W-LSB encoding, and false if the view does not carry one (e.g. a
	// profile that falls back to an internal counter).
	GetSN(v ipview.View) (uint32, bool)
	// Static returns the profile's static (never-changing-per-packet)
	// field snapshot for v, used to build the IR packet's static chain.
	Static(v ipview.View) StaticFields
	// Dynamic returns the profile's dynamic field snapshot for v, used
	// to build the IR-DYN/IR dynamic chain and to detect field changes
	// that force an FO-state transition.
	Dynamic(v ipview.View) DynamicFields
	// AppPayload returns the application-layer bytes that follow this
	// profile's own transport header within v.Payload() — the part of
	// the packet that rides uncompressed, once the header fields this
	// profile understands have been pulled into Static/Dynamic instead
	// (spec §4.5 step 6).
	AppPayload(v ipview.View) []byte
	// SetSN writes sn into d's SN-source field, inferring it the same
	// way GetSN reads it, so a UO packet's CRC-verified SN is reflected
	// back into the dynamic chain reconstruct rebuilds the transport
	// header from (spec §4.5 step 6's "inferred from SN" fields).
	SetSN(d *DynamicFields, sn uint16)
}

// StaticFields is the union of every profile's static chain; only the
// fields relevant to a given profile are populated, mirroring the way
// spec §4.6's table nests "+" additions on top of IP-only's base.
type StaticFields struct {
	Version  int
	SrcAddr  []byte
	DstAddr  []byte
	Protocol int

	SrcPort uint16
	DstPort uint16

	SSRC uint32

	SPI uint32

	// InnerVersion/InnerProtocol/InnerSrcAddr/InnerDstAddr are the
	// two-stack tunnel's inner static chain; see DynamicFields.Tunneled.
	InnerVersion  int
	InnerProtocol int
	InnerSrcAddr  []byte
	InnerDstAddr  []byte
}

// DynamicFields is the union of every profile's dynamic chain.
type DynamicFields struct {
	TOS       byte
	TTL       byte
	DF        bool
	IPID      uint16
	FlowLabel uint32

	UDPChecksum     uint16
	UDPChecksumMode ChecksumMode

	PayloadType byte
	Marker      bool
	SeqNum      uint16
	Timestamp   uint32
	CSRC        []uint32

	ESPSeqNum uint32

	CoverageLength uint16

	// Tunneled and the Inner* fields carry a two-stack IP-in-IP tunnel's
	// inner header (SPEC_FULL §4.3's one-level-deep supplement, grounded
	// on ip.c's outer/inner split), populated only by IPOnlyProfile when
	// ipview.View.Inner() succeeds.
	Tunneled       bool
	InnerVersion   int
	InnerTOS       byte
	InnerTTL       byte
	InnerDF        bool
	InnerIPID      uint16
	InnerFlowLabel uint32
}

// ChecksumMode is UDP's tri-state checksum dynamic field (spec §4.6
// supplement grounded on c_udp.h's udp_context.old_udp.check): the
// original 16-bit checksum is not simply "present or absent", a
// disabled UDP checksum is represented on the wire as present-but-zero,
// which is distinct from never having been computed.
type ChecksumMode int

const (
	ChecksumVerbatim ChecksumMode = iota
	ChecksumZero
	ChecksumAbsent
)

// applicableBase implements the version/fragmentation checks every
// profile's CheckApplicability must perform first, per spec §4.6.
func applicableBase(v ipview.View) bool {
	switch v.Kind() {
	case ipview.V4:
		return !v.IsFragment()
	case ipview.V6:
		return true
	default:
		return false
	}
}

func staticIPFields(v ipview.View) StaticFields {
	src, dst := v.Addrs()
	return StaticFields{
		Version:  versionOf(v),
		SrcAddr:  src,
		DstAddr:  dst,
		Protocol: v.GetProtocol(),
	}
}

func dynamicIPFields(v ipview.View) DynamicFields {
	d := DynamicFields{TTL: v.TTL()}
	if v.Kind() == ipview.V4 {
		d.TOS = v.TOS()
		d.IPID = v.IPID()
		d.DF = v.DF()
	} else {
		d.FlowLabel = v.FlowLabel()
	}
	return d
}

func versionOf(v ipview.View) int {
	if v.Kind() == ipview.V4 {
		return 4
	}
	return 6
}
