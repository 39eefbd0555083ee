// Package ctxtable is the CID-keyed, LRU-bounded context table spec.md's
// component table allocates 8% to ("Context table & dispatch") without
// ever detailing in its body (SPEC_FULL.md §4.9 fills the gap). It is
// grounded on buffer.Factory's map + sync.RWMutex pooling pattern, with
// an LRU eviction list layered on top since a ROHC endpoint's max_cid
// bound creates eviction pressure the teacher's SSRC map never had.
package ctxtable

import (
	"container/list"
	"sync"

	"github.com/rs/xid"
)

// entry is one table slot: the live context plus its position in the LRU
// list, so a hit can be promoted to most-recently-used in O(1). tag is a
// compact sortable id stamped once at allocation, independent of the CID
// namespace (CIDs get reused across flows; tag never does), so a trace
// callback can correlate every line an allocation emits across its
// IR -> FO -> SO lifetime even after its CID has been recycled.
type entry[C any] struct {
	cid     uint16
	tag     xid.ID
	ctx     *C
	element *list.Element
}

// Table is a generic CID-keyed context table, usable for either a
// compressor's or a decompressor's per-flow context type. maxEntries
// bounds how many CIDs can be live simultaneously (spec.md §5's
// "max_cid-bounded table with LRU eviction").
type Table[C any] struct {
	mu         sync.RWMutex
	maxEntries int
	byCID      map[uint16]*entry[C]
	lru        *list.List // front = most recently used
}

// New returns an empty table bounded to maxEntries live contexts.
// maxEntries <= 0 means unbounded.
func New[C any](maxEntries int) *Table[C] {
	return &Table[C]{
		maxEntries: maxEntries,
		byCID:      make(map[uint16]*entry[C]),
		lru:        list.New(),
	}
}

// Get returns the context for cid without creating one, promoting it to
// most-recently-used on a hit.
func (t *Table[C]) Get(cid uint16) (*C, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byCID[cid]
	if !ok {
		return nil, false
	}
	t.lru.MoveToFront(e.element)
	return e.ctx, true
}

// GetOrNew returns the existing context for cid, or calls newFn to
// create one and inserts it, evicting the least-recently-used entry if
// the table is at capacity. evicted is non-nil exactly when an eviction
// happened, mirroring Factory.GetOrNew's "existing or freshly built"
// signature shape.
func (t *Table[C]) GetOrNew(cid uint16, newFn func() *C) (ctx *C, evicted *C) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.byCID[cid]; ok {
		t.lru.MoveToFront(e.element)
		return e.ctx, nil
	}

	if t.maxEntries > 0 && len(t.byCID) >= t.maxEntries {
		evicted = t.evictLocked()
	}

	c := newFn()
	e := &entry[C]{cid: cid, tag: xid.New(), ctx: c}
	e.element = t.lru.PushFront(e)
	t.byCID[cid] = e
	return c, evicted
}

// TagFor returns the correlation tag stamped on cid's entry at
// allocation, for callers (trace, metrics) that want an identifier
// stable across CID reuse.
func (t *Table[C]) TagFor(cid uint16) (xid.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byCID[cid]
	if !ok {
		return xid.ID{}, false
	}
	return e.tag, true
}

// evictLocked drops the least-recently-used context and returns it. The
// caller must hold t.mu.
func (t *Table[C]) evictLocked() *C {
	back := t.lru.Back()
	if back == nil {
		return nil
	}
	e := back.Value.(*entry[C])
	t.lru.Remove(back)
	delete(t.byCID, e.cid)
	return e.ctx
}

// Remove drops cid's context, if any, returning it.
func (t *Table[C]) Remove(cid uint16) (*C, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byCID[cid]
	if !ok {
		return nil, false
	}
	t.lru.Remove(e.element)
	delete(t.byCID, cid)
	return e.ctx, true
}

// Len reports how many contexts are currently live.
func (t *Table[C]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byCID)
}
