package spy

import (
	"sync"
	"time"
)

// DefaultViewDebounce is how long an entity must stay observed before its
// view counts. Filters out accidental scroll-past views.
const DefaultViewDebounce = time.Second

type observation struct {
	timer *time.Timer
	sent  bool
}

// ViewTracker is the registration surface UI layers call once per content
// view. Each observed entity waits out a debounce before being enqueued,
// and is enqueued at most once for the lifetime of the observation no
// matter how often the same view re-registers.
type ViewTracker struct {
	mu           sync.Mutex
	observations map[ViewEvent]*observation

	debounce time.Duration
	batcher  *Batcher
	profile  *Store // optional, local history/interest updates
}

// TrackerOption configures a ViewTracker
type TrackerOption func(*ViewTracker)

// WithDebounce overrides the per-entity debounce delay
func WithDebounce(d time.Duration) TrackerOption {
	return func(t *ViewTracker) { t.debounce = d }
}

// NewViewTracker wires a tracker to the batcher and (optionally) the local
// profile store. Pass a nil profile to track views without local history.
func NewViewTracker(batcher *Batcher, profile *Store, opts ...TrackerOption) *ViewTracker {
	t := &ViewTracker{
		observations: make(map[ViewEvent]*observation),
		debounce:     DefaultViewDebounce,
		batcher:      batcher,
		profile:      profile,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe registers that an entity became visible. categoryTag, when known,
// feeds the local interest profile (conventionally "<domain>_<slug>").
// Re-observing an entity already pending or already sent is a no-op.
func (t *ViewTracker) Observe(table, entityID, categoryTag string) {
	if table == "" || entityID == "" {
		return
	}
	key := ViewEvent{Table: table, EntityID: entityID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.observations[key]; exists {
		return
	}

	obs := &observation{}
	obs.timer = time.AfterFunc(t.debounce, func() {
		t.fire(key, categoryTag)
	})
	t.observations[key] = obs
}

// Unobserve cancels a pending observation, e.g. the entity scrolled out of
// view before the debounce elapsed. Views already sent stay sent.
func (t *ViewTracker) Unobserve(table, entityID string) {
	key := ViewEvent{Table: table, EntityID: entityID}

	t.mu.Lock()
	defer t.mu.Unlock()

	obs, exists := t.observations[key]
	if !exists || obs.sent {
		return
	}
	obs.timer.Stop()
	delete(t.observations, key)
}

func (t *ViewTracker) fire(key ViewEvent, categoryTag string) {
	t.mu.Lock()
	obs, exists := t.observations[key]
	if !exists || obs.sent {
		t.mu.Unlock()
		return
	}
	obs.sent = true
	t.mu.Unlock()

	if t.profile != nil {
		t.profile.TrackPlaceView(key.EntityID, categoryTag)
	}
	t.batcher.EnqueueView(key.Table, key.EntityID)
}
