package feedback

import (
	"sync"

	"github.com/barvaux/gorohc/pkg/rohcerr"
)

// MaxQueueLen is the default bound on a Channel's pending feedback queue
// (spec §5 resource bounds): further pushes fail until the queue is
// flushed.
const MaxQueueLen = 1000

// Channel is the feedback side-channel spec §6 names:
// compressor.piggyback_feedback / flush_feedback and the decompressor's
// send_feedback output. It is adapted from pkg/buffer.RTCPReader's
// atomic-callback shape, but queues complete feedback packets for
// Flush instead of handing each one to a callback synchronously —
// ROHC feedback is usually piggybacked on the next outgoing ROHC packet,
// not delivered out-of-band like RTCP.
type Channel struct {
	mu       sync.Mutex
	pending  [][]byte
	maxLen   int
	onPacket func([]byte)
}

// NewChannel returns an empty channel bounded to maxLen pending packets.
// maxLen <= 0 defaults to MaxQueueLen.
func NewChannel(maxLen int) *Channel {
	if maxLen <= 0 {
		maxLen = MaxQueueLen
	}
	return &Channel{maxLen: maxLen}
}

// Push enqueues a feedback packet. It fails with a Capacity error once the
// channel is full; the caller must Flush before pushing again.
func (c *Channel) Push(packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= c.maxLen {
		return rohcerr.Capacity("feedback: queue full", nil)
	}
	c.pending = append(c.pending, packet)
	if c.onPacket != nil {
		c.onPacket(packet)
	}
	return nil
}

// Flush copies as many pending packets as fit into buf (length-prefixed by
// the caller's wire framing, not by Channel) and reports how many bytes
// were written, draining everything it wrote.
func (c *Channel) Flush(buf []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	drained := 0
	for _, p := range c.pending {
		if n+len(p) > len(buf) {
			break
		}
		n += copy(buf[n:], p)
		drained++
	}
	c.pending = c.pending[drained:]
	return n
}

// Len reports how many feedback packets are queued.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// OnPacket installs a callback invoked synchronously whenever Push
// succeeds, mirroring pkg/buffer.RTCPReader.OnPacket.
func (c *Channel) OnPacket(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPacket = fn
}
