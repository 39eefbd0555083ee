package profile

import "github.com/barvaux/gorohc/pkg/ipview"

// Registry holds the set of profiles an endpoint has enabled, the way
// spec §6's enable_profile builds up a compressor/decompressor's active
// set one profile at a time.
type Registry struct {
	byID map[ID]Profile
	// order records the IDs in Enable-call order. Select does not use it
	// as is: preferenceOrder re-sorts it most-specific-first by
	// defaultPreference (spec §4's packet-type selection step 2, "select
	// the most specific applicable profile").
	order []ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]Profile)}
}

// Enable adds p to the registry, replacing any profile already enabled
// under the same ID. The call order does not change which profile Select
// prefers, except among IDs that defaultPreference does not list.
func (r *Registry) Enable(p Profile) {
	if _, exists := r.byID[p.ID()]; !exists {
		r.order = append(r.order, p.ID())
	}
	r.byID[p.ID()] = p
}

// Get returns the enabled profile for id, if any.
func (r *Registry) Get(id ID) (Profile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Select returns the most-specific enabled profile willing to accept v,
// per spec §4 step 2's profile selection: profiles are tried in
// defaultPreference order, with any enabled ID it does not list tried
// last in Enable-call order, and the first applicable one wins. Returns false if no
// enabled profile accepts v.
func (r *Registry) Select(v ipview.View) (Profile, bool) {
	for _, id := range preferenceOrder(r.order) {
		p, ok := r.byID[id]
		if !ok {
			continue
		}
		if p.CheckApplicability(v) {
			return p, true
		}
	}
	return nil, false
}

// defaultPreference is most-specific-first: RTP/ESP/UDP-Lite/UDP before
// IP-only, with Uncompressed last as the universal fallback.
var defaultPreference = []ID{RTP, ESP, UDPLite, UDP, IPOnly, TCP, Uncompressed}

// preferenceOrder returns enabled IDs ordered by defaultPreference, with
// any enabled ID defaultPreference doesn't know about appended last.
func preferenceOrder(enabled []ID) []ID {
	enabledSet := make(map[ID]struct{}, len(enabled))
	for _, id := range enabled {
		enabledSet[id] = struct{}{}
	}
	out := make([]ID, 0, len(enabled))
	for _, id := range defaultPreference {
		if _, ok := enabledSet[id]; ok {
			out = append(out, id)
			delete(enabledSet, id)
		}
	}
	for _, id := range enabled {
		if _, ok := enabledSet[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
