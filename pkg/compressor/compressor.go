package compressor

import (
	"encoding/hex"
	"sync"

	"github.com/barvaux/gorohc/pkg/ctxtable"
	"github.com/barvaux/gorohc/pkg/feedback"
	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohcerr"
	"github.com/barvaux/gorohc/pkg/rohctrace"
	"github.com/go-logr/logr"
)

// CIDType picks between small (4-bit Add-CID) and large (SDVL) CID
// space, per spec §6.
type CIDType int

const (
	SmallCID CIDType = iota
	LargeCID
)

// Config bundles the construction-time options spec §6 lists as
// individual setters (enable_profile, set_wlsb_width, ...), following
// pkg/sfu.Config's plain-struct-of-options shape rather than a long
// functional-options chain, since every field here is set once at
// construction and never mutated afterward.
type Config struct {
	CIDType     CIDType
	MaxCID      int
	Mode        Mode
	WindowWidth int
	IRRefresh   int
	FORefresh   int
	MRRU        int
	Trace       *rohctrace.Sink
}

// Compressor drives a set of flow Contexts keyed by a flow key (profile
// ID, IP protocol, source and destination addresses, and the first four
// transport octets; see flowKey), allocating CIDs from ctxtable's LRU table the way
// spec §4.4 step 2 describes ("allocate a new one in the
// least-recently-used slot").
type Compressor struct {
	mu       sync.Mutex
	cfg      Config
	registry *profile.Registry
	table    *ctxtable.Table[Context]
	byKey    map[string]uint16
	nextCID  uint16
	feedback *feedback.Channel
}

// New returns a Compressor with no profiles enabled; call EnableProfile
// before Compress will accept any packet.
func New(cfg Config) *Compressor {
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 4
	}
	if cfg.Trace == nil {
		cfg.Trace = rohctrace.NewSink(logr.Discard())
	}
	return &Compressor{
		cfg:      cfg,
		registry: profile.NewRegistry(),
		table:    ctxtable.New[Context](cfg.MaxCID),
		byKey:    make(map[string]uint16),
		feedback: feedback.NewChannel(0),
	}
}

// EnableProfile adds p to the set of profiles this compressor may select.
func (c *Compressor) EnableProfile(p profile.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Enable(p)
}

// Feedback returns the channel the caller should Flush to obtain
// out-of-band FEEDBACK-1/2 packets pushed onto it (spec §6's
// flush_feedback). Compress itself queues nothing on it.
func (c *Compressor) Feedback() *feedback.Channel { return c.feedback }

// Context returns the live context for cid, if one exists, so a caller
// can inspect its Stats()/State() (e.g. to feed rohcmetrics).
func (c *Compressor) Context(cid uint16) (*Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Get(cid)
}

// Compress classifies pkt against an existing or newly-allocated
// context, advances that context's state machine, and returns the ROHC
// packet to transmit. It fails with a NotCompressible error if no
// enabled profile accepts pkt.
func (c *Compressor) Compress(pkt []byte) ([]byte, error) {
	v := ipview.Parse(pkt)
	if v.Kind() != ipview.V4 && v.Kind() != ipview.V6 {
		return nil, rohcerr.NotCompressible("compressor: packet is not a parseable IP packet", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.registry.Select(v)
	if !ok {
		return nil, rohcerr.NotCompressible("compressor: no enabled profile accepts this packet", nil)
	}

	ctx, cid := c.contextFor(v, p)
	sn := ctx.sn(v)
	ch := ctx.detectChanges(v)
	ctx.advanceState(ch)

	out, err := buildPacket(ctx, v, uint16(sn))
	if err != nil {
		return nil, err
	}
	ctx.commit(v, sn)

	tag, _ := c.table.TagFor(cid)
	c.cfg.Trace.Emit(rohctrace.Debug, rohctrace.Comp, uint16(p.ID()),
		"cid=%d tag=%s state=%s sn=%d hdrlen=%d bytes=%s", cid, tag, ctx.state, sn, len(v.HeaderBytes()), hex.EncodeToString(out))

	return prependCID(out, cid, c.cfg.CIDType)
}

func (c *Compressor) contextFor(v ipview.View, p profile.Profile) (*Context, uint16) {
	key := flowKey(p.ID(), v)
	if cid, ok := c.byKey[key]; ok {
		if ctx, ok := c.table.Get(cid); ok {
			return ctx, cid
		}
	}

	cid := c.allocateCID()
	ctx, evicted := c.table.GetOrNew(cid, func() *Context {
		ctx := NewContext(cid, p, c.cfg.Mode, c.cfg.WindowWidth)
		if c.cfg.IRRefresh > 0 {
			ctx.irRefresh, ctx.irRemaining = c.cfg.IRRefresh, c.cfg.IRRefresh
		}
		if c.cfg.FORefresh > 0 {
			ctx.foRefresh, ctx.foRemaining = c.cfg.FORefresh, c.cfg.FORefresh
		}
		return ctx
	})
	c.byKey[key] = cid
	if evicted != nil {
		c.forgetKey(evicted.CID)
	}
	return ctx, cid
}

func (c *Compressor) forgetKey(cid uint16) {
	for k, v := range c.byKey {
		if v == cid {
			delete(c.byKey, k)
			return
		}
	}
}

func (c *Compressor) allocateCID() uint16 {
	cid := c.nextCID
	c.nextCID++
	if c.cfg.MaxCID > 0 {
		c.nextCID %= uint16(c.cfg.MaxCID)
	}
	return cid
}

func flowKey(id profile.ID, v ipview.View) string {
	src, dst := v.Addrs()
	key := append([]byte{byte(id), byte(v.GetProtocol())}, src...)
	key = append(key, dst...)
	if len(v.Payload()) >= 4 {
		key = append(key, v.Payload()[0:4]...)
	}
	return string(key)
}

func prependCID(body []byte, cid uint16, t CIDType) ([]byte, error) {
	if t == SmallCID {
		return feedback.PrependCID(body, cid, feedback.SmallCID)
	}
	return feedback.PrependCID(body, cid, feedback.LargeCID)
}
