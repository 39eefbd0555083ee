package profile

import "github.com/barvaux/gorohc/pkg/ipview"

// IPOnlyProfile compresses the bare IP header (spec §4.6 row "IP-only"):
// no transport header is inspected, so the SN source is the IP-ID field
// when present (IPv4) or an internal counter (IPv6, which has none).
type IPOnlyProfile struct{}

func (IPOnlyProfile) ID() ID { return IPOnly }

func (IPOnlyProfile) CheckApplicability(v ipview.View) bool {
	return applicableBase(v)
}

func (IPOnlyProfile) GetSN(v ipview.View) (uint32, bool) {
	if v.Kind() == ipview.V4 {
		return uint32(v.IPID()), true
	}
	return 0, false
}

// Static adds the two-stack tunnel's inner static chain (SPEC_FULL §4.3)
// on top of the outer IP-only static fields when v is itself carrying an
// IP-in-IP tunneled packet (outer protocol 4 or 41).
func (IPOnlyProfile) Static(v ipview.View) StaticFields {
	s := staticIPFields(v)
	if inner, ok := v.Inner(); ok {
		is := staticIPFields(inner)
		s.InnerVersion = is.Version
		s.InnerProtocol = is.Protocol
		s.InnerSrcAddr = is.SrcAddr
		s.InnerDstAddr = is.DstAddr
	}
	return s
}

func (IPOnlyProfile) Dynamic(v ipview.View) DynamicFields {
	d := dynamicIPFields(v)
	if inner, ok := v.Inner(); ok {
		innerDyn := dynamicIPFields(inner)
		d.Tunneled = true
		d.InnerVersion = versionOf(inner)
		d.InnerTOS = innerDyn.TOS
		d.InnerTTL = innerDyn.TTL
		d.InnerDF = innerDyn.DF
		d.InnerIPID = innerDyn.IPID
		d.InnerFlowLabel = innerDyn.FlowLabel
	}
	return d
}

// AppPayload returns the innermost transport payload once the inner IP
// header of a two-stack tunnel is pulled into Static/Dynamic, rather than
// carrying that inner header as opaque bytes.
func (IPOnlyProfile) AppPayload(v ipview.View) []byte {
	if inner, ok := v.Inner(); ok {
		return inner.Payload()
	}
	return v.Payload()
}

func (IPOnlyProfile) SetSN(d *DynamicFields, sn uint16) { d.IPID = sn }
