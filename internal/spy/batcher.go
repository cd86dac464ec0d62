package spy

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dalilsuez/backend/internal/logger"
)

// DefaultFlushDelay is the shared batch window: the single-shot timer started
// by the first enqueue of a cycle.
const DefaultFlushDelay = 2 * time.Second

// ViewEvent is one coalesced view signal: which table the entity lives in
// and which row was seen.
type ViewEvent struct {
	Table    string `json:"table"`
	EntityID string `json:"entity_id"`
}

// Transport delivers a flushed batch to the server in one call
type Transport interface {
	SendViewBatch(ctx context.Context, batch []ViewEvent) error
}

// Batcher coalesces view events into a single delivery per flush window.
// The flush timer is single-shot: the first enqueue of a cycle schedules it,
// and later enqueues join the pending batch without resetting it. Delivery
// is at-most-once per window; a failed send drops the batch (view counts
// are advisory, losing a few is accepted).
type Batcher struct {
	mu        sync.Mutex
	pending   []ViewEvent
	seen      map[ViewEvent]struct{}
	scheduled bool

	delay       time.Duration
	sendTimeout time.Duration
	transport   Transport
}

// BatcherOption configures a Batcher
type BatcherOption func(*Batcher)

// WithFlushDelay overrides the batch window
func WithFlushDelay(d time.Duration) BatcherOption {
	return func(b *Batcher) { b.delay = d }
}

// WithSendTimeout bounds the delivery call
func WithSendTimeout(d time.Duration) BatcherOption {
	return func(b *Batcher) { b.sendTimeout = d }
}

// NewBatcher creates a batcher delivering through the given transport
func NewBatcher(transport Transport, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		seen:        make(map[ViewEvent]struct{}),
		delay:       DefaultFlushDelay,
		sendTimeout: 5 * time.Second,
		transport:   transport,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnqueueView adds a view to the pending batch, deduplicated by
// (table, entityID) within the current flush cycle. Fire-and-forget: the
// caller never learns about delivery problems.
func (b *Batcher) EnqueueView(table, entityID string) {
	if table == "" || entityID == "" {
		return
	}
	ev := ViewEvent{Table: table, EntityID: entityID}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.seen[ev]; dup {
		return
	}
	b.seen[ev] = struct{}{}
	b.pending = append(b.pending, ev)

	if !b.scheduled {
		b.scheduled = true
		time.AfterFunc(b.delay, b.Flush)
	}
}

// Flush swaps the queue for an empty one and delivers the captured batch in
// one transport call. The scheduled flag clears regardless of the outcome;
// there is no retry. Also called directly on embedder shutdown.
func (b *Batcher) Flush() {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.seen = make(map[ViewEvent]struct{})
	b.scheduled = false
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
	defer cancel()

	if err := b.transport.SendViewBatch(ctx, batch); err != nil {
		logger.Log.Warn("view batch delivery failed, batch dropped",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
	}
}

// PendingLen reports the current queue depth
func (b *Batcher) PendingLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
