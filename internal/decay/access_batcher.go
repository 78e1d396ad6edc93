package decay

import (
	"sync"
	"time"
)

// AccessUpdate is one pending access-count/last-accessed update for an
// engram, coalesced in memory until the next flush.
type AccessUpdate struct {
	AccessCount  uint64
	LastAccessed time.Time
}

// FlushFunc applies a coalesced batch of access updates to the
// authoritative store and the importance/access index. Keyed by engram id.
type FlushFunc func(updates map[string]AccessUpdate)

// AccessBatcher coalesces per-engram access recordings so a burst of reads
// produces one write instead of one per read: it flushes once batchSize
// updates have accumulated, or whenever the caller invokes MaybeFlush after
// flushInterval has elapsed. It never reads the clock or spawns goroutines
// itself — the caller drives time, keeping this package pure and easy to
// test deterministically.
type AccessBatcher struct {
	mu            sync.Mutex
	pending       map[string]AccessUpdate
	flushInterval time.Duration
	batchSize     int
	lastFlush     time.Time
	flush         FlushFunc
}

// NewAccessBatcher returns a batcher that flushes via flush.
func NewAccessBatcher(flushInterval time.Duration, batchSize int, flush FlushFunc) *AccessBatcher {
	return &AccessBatcher{
		pending:       map[string]AccessUpdate{},
		flushInterval: flushInterval,
		batchSize:     batchSize,
		flush:         flush,
	}
}

// Record coalesces one access to id at now. baseAccessCount is the
// engram's currently-stored access count; it seeds the pending update only
// the first time id appears in the current batch, so repeated accesses
// within one batch just keep incrementing.
func (b *AccessBatcher) Record(id string, now time.Time, baseAccessCount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastFlush.IsZero() {
		b.lastFlush = now
	}

	upd, ok := b.pending[id]
	if !ok {
		upd.AccessCount = baseAccessCount
	}
	upd.AccessCount++
	upd.LastAccessed = now
	b.pending[id] = upd

	if b.batchSize > 0 && len(b.pending) >= b.batchSize {
		b.flushLocked()
		b.lastFlush = now
	}
}

// MaybeFlush flushes the pending batch if flushInterval has elapsed since
// the last flush, or unconditionally when force is true.
func (b *AccessBatcher) MaybeFlush(now time.Time, force bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !force && b.flushInterval > 0 && now.Sub(b.lastFlush) < b.flushInterval {
		return
	}
	b.flushLocked()
	b.lastFlush = now
}

func (b *AccessBatcher) flushLocked() {
	if len(b.pending) == 0 {
		return
	}
	batch := b.pending
	b.pending = map[string]AccessUpdate{}
	if b.flush != nil {
		b.flush(batch)
	}
}

// Pending returns the number of ids with an uncommitted update.
func (b *AccessBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
