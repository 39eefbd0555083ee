package profile

import "github.com/barvaux/gorohc/pkg/ipview"

// UncompressedProfile is the fallback profile (spec §4.6): it carries no
// static or dynamic chain and uses an internal counter for its SN, so it
// accepts anything the others reject, including fragments, since it does
// not attempt to compress header fields at all.
type UncompressedProfile struct{}

func (UncompressedProfile) ID() ID { return Uncompressed }

func (UncompressedProfile) CheckApplicability(v ipview.View) bool {
	return v.Kind() == ipview.V4 || v.Kind() == ipview.V6 || v.Kind() == ipview.Unknown
}

func (UncompressedProfile) GetSN(ipview.View) (uint32, bool) { return 0, false }

func (UncompressedProfile) Static(ipview.View) StaticFields { return StaticFields{} }

func (UncompressedProfile) Dynamic(ipview.View) DynamicFields { return DynamicFields{} }

func (UncompressedProfile) AppPayload(v ipview.View) []byte { return v.Payload() }

func (UncompressedProfile) SetSN(*DynamicFields, uint16) {}
