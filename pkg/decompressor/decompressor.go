// Package decompressor implements the decompressor side of RFC 3095's
// per-context procedure (spec §4.5): CID dispatch, the NC/SC/FC state
// machine (context.go), packet parsing and LSB decoding (packet.go), IP
// header reconstruction (reconstruct.go), and feedback emission.
package decompressor

import (
	"encoding/hex"

	"github.com/barvaux/gorohc/pkg/ctxtable"
	"github.com/barvaux/gorohc/pkg/feedback"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohcerr"
	"github.com/barvaux/gorohc/pkg/rohctrace"
	"github.com/barvaux/gorohc/pkg/rohcwire"
	"github.com/go-logr/logr"
)

// Config bundles Decompressor's construction-time options, mirroring
// compressor.Config's plain-struct shape.
type Config struct {
	CIDType     CIDType
	Mode        Mode
	WindowWidth int
	MaxCID      int
	MRRU        int
	Trace       *rohctrace.Sink
	// Features enables opt-in decompressor behaviors (spec §6's feature
	// bitset); zero value keeps the strict RFC 3095 behavior.
	Features Features
	// RateLimitK1/N1/K2/N2 override the FC->SC->NC demotion thresholds
	// (k CRC failures out of the last n packets) new contexts are created with; zero
	// leaves context.go's DefaultK1/N1/K2/N2 in effect.
	RateLimitK1, RateLimitN1 int
	RateLimitK2, RateLimitN2 int
}

// Features is a bitset of opt-in decompressor behaviors beyond strict
// RFC 3095 (spec §6, SPEC_FULL §6).
type Features uint32

const (
	// FeatureCRCRepair enables the SN-wrap-hypothesis CRC repair retry
	// (spec §4.5's "CRC repair"): on a UO packet's CRC failure, a small
	// set of nearby SN candidates (offset by multiples of the LSB
	// field's modulus) are tried before the packet is given up on.
	FeatureCRCRepair Features = 1 << iota
	// FeatureCompat16x is the ROHC 1.6.x compatibility bit (spec §6,
	// SPEC_FULL §6). It is accepted and stored; no decoding path consults
	// it, so setting it does not change how packets are decoded.
	FeatureCompat16x
)

// CIDType mirrors compressor.CIDType; duplicated rather than imported to
// keep the two packages independently usable.
type CIDType int

const (
	SmallCID CIDType = iota
	LargeCID
)

// Decompressor drives a per-CID table of Contexts, selecting the context
// to reuse, update, or leave untouched by the outcome of each packet
// (spec §4.5's seven-step procedure).
type Decompressor struct {
	cfg         Config
	registry    *profile.Registry
	table       *ctxtable.Table[Context]
	feedback    *feedback.Channel
	reassembler *ctxtable.Reassembler

	features Features
}

// New returns a Decompressor with no profiles enabled; call EnableProfile
// before Decompress will recognize any packet's profile octet.
func New(cfg Config) *Decompressor {
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 4
	}
	if cfg.Trace == nil {
		cfg.Trace = rohctrace.NewSink(logr.Discard())
	}
	return &Decompressor{
		cfg:         cfg,
		registry:    profile.NewRegistry(),
		table:       ctxtable.New[Context](cfg.MaxCID),
		feedback:    feedback.NewChannel(0),
		reassembler: ctxtable.NewReassembler(cfg.MRRU),
		features:    cfg.Features,
	}
}

// EnableProfile adds p to the set of profiles this decompressor can
// recognize in an IR packet's profile octet.
func (d *Decompressor) EnableProfile(p profile.Profile) {
	d.registry.Enable(p)
}

// SetFeatures replaces the active feature bitset; it applies to contexts
// created from this point on (an in-flight context already in the table
// keeps whatever features were active when it was created).
func (d *Decompressor) SetFeatures(f Features) {
	d.features = f
	d.cfg.Features = f
}

// SetRateLimits overrides the FC->SC->NC demotion thresholds new contexts
// are created with; a zero argument leaves the corresponding default
// untouched.
func (d *Decompressor) SetRateLimits(k1, n1, k2, n2 int) {
	if k1 > 0 {
		d.cfg.RateLimitK1 = k1
	}
	if n1 > 0 {
		d.cfg.RateLimitN1 = n1
	}
	if k2 > 0 {
		d.cfg.RateLimitK2 = k2
	}
	if n2 > 0 {
		d.cfg.RateLimitN2 = n2
	}
}

// newContext builds a context carrying this decompressor's current
// features and rate-limit overrides.
func (d *Decompressor) newContext(cid uint16, p profile.Profile) *Context {
	ctx := NewContext(cid, p, d.cfg.Mode, d.cfg.WindowWidth)
	ctx.features = d.features
	if d.cfg.RateLimitK1 > 0 {
		ctx.k1 = d.cfg.RateLimitK1
	}
	if d.cfg.RateLimitN1 > 0 {
		ctx.n1 = d.cfg.RateLimitN1
	}
	if d.cfg.RateLimitK2 > 0 {
		ctx.k2 = d.cfg.RateLimitK2
	}
	if d.cfg.RateLimitN2 > 0 {
		ctx.n2 = d.cfg.RateLimitN2
	}
	return ctx
}

// Feedback returns the channel Decompress queues ACK/NACK/STATIC-NACK
// packets onto, per the mode's policy (spec §4.8).
func (d *Decompressor) Feedback() *feedback.Channel { return d.feedback }

// Context returns the live context for cid, if one exists, so a caller
// can inspect its Stats()/State() (e.g. to feed rohcmetrics).
func (d *Decompressor) Context(cid uint16) (*Context, bool) {
	return d.table.Get(cid)
}

// Decompress expands one received ROHC packet back into the original IP
// packet, per spec §4.5's seven steps: extract CID, look up or require a
// context, identify the packet kind, decode its fields, LSB-resolve SN
// (and TS), reconstruct, and verify CRC before committing the new
// reference.
func (d *Decompressor) Decompress(pkt []byte) ([]byte, error) {
	large := d.cfg.CIDType == LargeCID
	cid, body, err := rohcwire.ExtractCID(pkt, large)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, rohcerr.Malformed("decompressor: empty packet body", nil)
	}

	kind, ok := rohcwire.IdentifyKind(body[0])
	if !ok {
		return nil, rohcerr.Malformed("decompressor: unrecognized packet prefix", nil)
	}

	if kind == rohcwire.KindSegment {
		return d.reassemble(body[1:])
	}

	ctx, haveCtx := d.table.Get(cid)
	if !haveCtx {
		if kind != rohcwire.KindIR {
			d.reject(cid, 0)
			return nil, rohcerr.NoContext("decompressor: non-IR packet for unknown context", nil)
		}
		if len(body) < 2 {
			return nil, rohcerr.Malformed("decompressor: truncated IR packet", nil)
		}
		id := profile.ID(body[1])
		p, ok := d.registry.Get(id)
		if !ok {
			return nil, rohcerr.NotCompressible("decompressor: IR names a disabled profile", nil)
		}
		var evicted *Context
		ctx, evicted = d.table.GetOrNew(cid, func() *Context {
			return d.newContext(cid, p)
		})
		_ = evicted
	}

	var (
		dec  decoded
		perr error
	)
	switch kind {
	case rohcwire.KindIR:
		dec, perr = parseIR(ctx, body)
	case rohcwire.KindIRDyn:
		dec, perr = parseIRDyn(ctx, body)
	default:
		dec, perr = parseUO(ctx, body)
	}
	if perr != nil {
		ctx.recordCRC(false)
		d.reject(cid, ctx.lastSN)
		return nil, perr
	}

	v, ok := verify(ctx.Profile.ID(), dec)
	if !ok && ctx.features&FeatureCRCRepair != 0 && kind != rohcwire.KindIR && kind != rohcwire.KindIRDyn {
		if rv, rsn, rok := attemptRepair(ctx.Profile.ID(), ctx, dec); rok {
			v, ok = rv, true
			dec.sn = rsn
			ctx.Profile.SetSN(&dec.dynamic, rsn)
			ctx.stats.Repairs++
		}
	}
	if !ok {
		ctx.recordCRC(false)
		ctx.stats.CRCFailures++
		d.reject(cid, ctx.lastSN)
		return nil, rohcerr.CRCFailure("decompressor: reconstructed header failed CRC check", nil)
	}
	ctx.recordCRC(true)
	switch kind {
	case rohcwire.KindIR:
		ctx.onIRSuccess()
	case rohcwire.KindIRDyn:
		ctx.onIRDynSuccess()
	}
	ctx.commit(dec.static, dec.dynamic, dec.sn)
	d.acknowledge(cid, dec.sn)
	d.reportLoss(cid, ctx)

	tag, _ := d.table.TagFor(cid)
	d.cfg.Trace.Emit(rohctrace.Debug, rohctrace.Decomp, uint16(ctx.Profile.ID()),
		"cid=%d tag=%s state=%s sn=%d hdrlen=%d bytes=%s", cid, tag, ctx.state, dec.sn, len(v.HeaderBytes()), hex.EncodeToString(v.Raw()))

	return v.Raw(), nil
}

// reassemble accumulates one Segment packet's fragment (the octets after
// the Segment prefix byte: a one-byte final-segment flag followed by the
// fragment's payload) into the in-progress RRU, per spec §5's Maximum RRU
// bound. A non-final fragment returns (nil, nil): the caller has nothing
// to act on yet. The final fragment completes the RRU and recurses into
// Decompress to process it exactly as if it had arrived as one packet.
func (d *Decompressor) reassemble(segment []byte) ([]byte, error) {
	if len(segment) < 1 {
		return nil, rohcerr.Malformed("decompressor: empty segment fragment", nil)
	}
	final := segment[0] != 0
	fragment := segment[1:]

	if !final {
		if err := d.reassembler.Push(fragment); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rru, err := d.reassembler.Final(fragment)
	if err != nil {
		return nil, err
	}
	return d.Decompress(rru)
}

// acknowledge queues an ACK per the context's mode policy: none in
// Unidirectional, periodic in Optimistic (every packet, since the
// decompressor itself has no cheap way to detect "periodic" here without
// extra state — callers wanting a coarser cadence can rate-limit
// Feedback()'s drain), every packet in Reliable.
func (d *Decompressor) acknowledge(cid uint16, sn uint16) {
	ctx, ok := d.table.Get(cid)
	if !ok || ctx.Mode == Unidirectional {
		return
	}
	body, err := feedback.Build2(feedback.ACK, feedback.Mode(ctx.Mode), uint32(sn), ctx.Mode == Reliable)
	if err != nil {
		return
	}
	framed, err := feedback.PrependCID(body, cid, feedback.CIDType(d.cfg.CIDType))
	if err != nil {
		return
	}
	_ = d.feedback.Push(framed)
}

// reportLoss drains any SNs ctx noted as skipped and queues them as a
// Loss-option-bearing feedback packet, skipped entirely in
// Unidirectional mode where there is no return channel to send it on.
func (d *Decompressor) reportLoss(cid uint16, ctx *Context) {
	if ctx.Mode == Unidirectional {
		ctx.drainLoss()
		return
	}
	lost := ctx.drainLoss()
	if len(lost) == 0 {
		return
	}
	body, err := feedback.Build2(feedback.ACK, feedback.Mode(ctx.Mode), uint32(ctx.lastSN),
		ctx.Mode == Reliable, feedback.LossOptions(lost)...)
	if err != nil {
		return
	}
	framed, err := feedback.PrependCID(body, cid, feedback.CIDType(d.cfg.CIDType))
	if err != nil {
		return
	}
	_ = d.feedback.Push(framed)
}

// reject queues a NACK (sn known) or STATIC-NACK (sn unknown, context
// never established) once the mode allows signalling failures back to the
// compressor (spec §4.5's "optimistic/reliable mode reacts to a CRC
// failure by NACKing").
func (d *Decompressor) reject(cid uint16, sn uint16) {
	ctx, ok := d.table.Get(cid)
	mode := d.cfg.Mode
	if ok {
		mode = ctx.Mode
	}
	if mode == Unidirectional {
		return
	}
	ackType := feedback.NACK
	if !ok || !ctx.haveRef {
		ackType = feedback.StaticNACK
	}
	body, err := feedback.Build2(ackType, feedback.Mode(mode), uint32(sn), mode == Reliable)
	if err != nil {
		return
	}
	framed, err := feedback.PrependCID(body, cid, feedback.CIDType(d.cfg.CIDType))
	if err != nil {
		return
	}
	_ = d.feedback.Push(framed)
}
