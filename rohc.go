// Package gorohc is the public facade spec §6 names: construction,
// profile enablement, and the Compress/Decompress/Feedback surface a
// caller drives without ever touching the compressor/decompressor
// internals directly. It is shaped the way pkg/sfu.Config/NewSFU bundled
// construction-time options into one plain struct, generalized from "one
// SFU owning many peer sessions" to "one Compressor or Decompressor
// owning many flow contexts".
package gorohc

import (
	"github.com/barvaux/gorohc/pkg/compressor"
	"github.com/barvaux/gorohc/pkg/decompressor"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohctrace"
)

// CIDType selects small (4-bit Add-CID) or large (SDVL) CID space,
// mirrored onto both compressor.CIDType and decompressor.CIDType so a
// caller configuring a bidirectional pair only states it once.
type CIDType = compressor.CIDType

const (
	SmallCID = compressor.SmallCID
	LargeCID = compressor.LargeCID
)

// Mode is the ROHC operating mode (spec §3): Unidirectional, Optimistic
// or Reliable.
type Mode = compressor.Mode

const (
	Unidirectional = compressor.Unidirectional
	Optimistic     = compressor.Optimistic
	Reliable       = compressor.Reliable
)

// Config bundles the options spec §6 lists individually
// (enable_profile, set_wlsb_width, set_periodic_refreshes, ...) into one
// struct shared by both ends of a ROHC channel.
type Config struct {
	CIDType     CIDType
	MaxCID      int
	Mode        Mode
	WindowWidth int
	IRRefresh   int
	FORefresh   int
	MRRU        int
	Trace       *rohctrace.Sink
	// Profiles is the set of profiles to enable on construction, most
	// callers want every profile they've linked in; omit to enable none
	// and call EnableProfile later.
	Profiles []profile.Profile
	// Features enables opt-in decompressor behaviors (spec §6's feature
	// bitset); ignored by NewCompressor.
	Features decompressor.Features
	// RateLimitK1/N1/K2/N2 override the decompressor's FC->SC->NC
	// demotion thresholds; ignored by NewCompressor.
	RateLimitK1, RateLimitN1 int
	RateLimitK2, RateLimitN2 int
}

// Endpoint pairs a Compressor and Decompressor configured identically,
// for a caller running both directions of a single bidirectional ROHC
// channel (spec §6's typical use: one Endpoint per point-to-point link).
type Endpoint struct {
	Compressor   *compressor.Compressor
	Decompressor *decompressor.Decompressor
}

// NewCompressor returns a Compressor with cfg's profiles already enabled.
func NewCompressor(cfg Config) *compressor.Compressor {
	c := compressor.New(compressor.Config{
		CIDType:     cfg.CIDType,
		MaxCID:      cfg.MaxCID,
		Mode:        cfg.Mode,
		WindowWidth: cfg.WindowWidth,
		IRRefresh:   cfg.IRRefresh,
		FORefresh:   cfg.FORefresh,
		MRRU:        cfg.MRRU,
		Trace:       cfg.Trace,
	})
	for _, p := range cfg.Profiles {
		c.EnableProfile(p)
	}
	return c
}

// NewDecompressor returns a Decompressor with cfg's profiles already
// enabled.
func NewDecompressor(cfg Config) *decompressor.Decompressor {
	d := decompressor.New(decompressor.Config{
		CIDType:      decompressor.CIDType(cfg.CIDType),
		Mode:         decompressor.Mode(cfg.Mode),
		WindowWidth:  cfg.WindowWidth,
		MaxCID:       cfg.MaxCID,
		MRRU:         cfg.MRRU,
		Trace:        cfg.Trace,
		Features:     cfg.Features,
		RateLimitK1:  cfg.RateLimitK1,
		RateLimitN1:  cfg.RateLimitN1,
		RateLimitK2:  cfg.RateLimitK2,
		RateLimitN2:  cfg.RateLimitN2,
	})
	for _, p := range cfg.Profiles {
		d.EnableProfile(p)
	}
	return d
}

// NewEndpoint returns a Compressor/Decompressor pair sharing cfg, for the
// common case of driving both directions of one link.
func NewEndpoint(cfg Config) *Endpoint {
	return &Endpoint{
		Compressor:   NewCompressor(cfg),
		Decompressor: NewDecompressor(cfg),
	}
}

// DefaultProfiles returns one instance of every profile this module
// implements, in the order Registry.Select prefers them (spec §4.6's full
// matrix): RTP, ESP, UDP-Lite, UDP, IP-only, Uncompressed. rtpPorts
// configures RTPProfile's port-based applicability heuristic; with none,
// the RTP profile accepts a flow only once its IsRTP callback is set.
func DefaultProfiles(rtpPorts ...uint16) []profile.Profile {
	return []profile.Profile{
		profile.NewRTPProfile(rtpPorts...),
		profile.ESPProfile{},
		profile.UDPLiteProfile{},
		profile.UDPProfile{},
		profile.IPOnlyProfile{},
		profile.UncompressedProfile{},
	}
}
