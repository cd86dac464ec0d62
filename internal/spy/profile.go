// Package spy implements the client-resident behavior tracking engine: a
// persisted profile of interests, view history and navigation state, plus
// the batcher that coalesces view signals before they reach the server.
//
// Everything in this package is advisory. The profile is device-local and
// rebuildable; no operation here may fail loudly enough to disturb whatever
// the user was actually doing.
package spy

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"go.uber.org/zap"
)

// DefaultInterestWeight is added when TrackInterest is called without an
// explicit weight.
const DefaultInterestWeight = 1.0

// DefaultHistoryCap bounds the viewed-places history.
const DefaultHistoryCap = 20

// DefaultStorageKey is the key the profile persists under.
const DefaultStorageKey = "dalil_behavior_profile"

// LastState is the single-slot navigation/scroll snapshot.
type LastState struct {
	Pathname string            `json:"pathname"`
	Category string            `json:"category,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
	ScrollY  int               `json:"scroll_y"`
}

// BehaviorProfile is the persisted shape of a device's tracked behavior.
// Interests weights only grow through TrackInterest; normalization happens
// at read time in TopInterest. InterestOrder records first-encountered
// order so top-interest tie-breaks are stable instead of map-iteration
// accidents.
type BehaviorProfile struct {
	VisitCount    int                `json:"visit_count"`
	LastVisitDay  string             `json:"last_visit_day,omitempty"` // UTC calendar day, "2006-01-02"
	Interests     map[string]float64 `json:"interests"`
	InterestOrder []string           `json:"interest_order,omitempty"`
	ViewedPlaces  []string           `json:"viewed_places,omitempty"` // most-recent-first, capped
	LastState     *LastState         `json:"last_state,omitempty"`
}

// Store owns the in-memory profile and keeps it durable through the injected
// Storage. Writes persist before the mutating call returns. The store is
// expected to have a single writer, but a mutex guards it anyway since Go
// callers cross goroutines freely.
type Store struct {
	mu         sync.Mutex
	storage    Storage
	storageKey string
	historyCap int
	now        func() time.Time
	thresholds Thresholds

	profile *BehaviorProfile // nil until first load
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreClock overrides the time source (visit-day logic in tests)
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithHistoryCap overrides the viewed-places cap
func WithHistoryCap(cap int) StoreOption {
	return func(s *Store) { s.historyCap = cap }
}

// WithStorageKey overrides the persistence key
func WithStorageKey(key string) StoreOption {
	return func(s *Store) { s.storageKey = key }
}

// WithThresholds overrides the archetype thresholds
func WithThresholds(t Thresholds) StoreOption {
	return func(s *Store) { s.thresholds = t }
}

// NewStore creates a profile store backed by the given storage
func NewStore(storage Storage, opts ...StoreOption) *Store {
	s := &Store{
		storage:    storage,
		storageKey: DefaultStorageKey,
		historyCap: DefaultHistoryCap,
		now:        time.Now,
		thresholds: DefaultThresholds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProfile returns a snapshot of the current profile, creating and
// persisting a default one on first access. The snapshot is a copy; mutating
// it does not affect the store.
func (s *Store) GetProfile() BehaviorProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return s.snapshot()
}

// TrackInterest adds weight to a tag's accumulated interest. A non-positive
// weight falls back to DefaultInterestWeight. This is the only path that
// adjusts interest weights.
func (s *Store) TrackInterest(tag string, weight float64) {
	if tag == "" {
		return
	}
	if weight <= 0 {
		weight = DefaultInterestWeight
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	if _, seen := s.profile.Interests[tag]; !seen {
		s.profile.InterestOrder = append(s.profile.InterestOrder, tag)
	}
	s.profile.Interests[tag] += weight
	s.persist()
}

// TopInterest returns the tag with the maximum accumulated weight, or ""
// when nothing has been tracked. Ties resolve to the first-encountered tag.
func (s *Store) TopInterest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	top := ""
	best := 0.0
	for _, tag := range s.profile.InterestOrder {
		if w := s.profile.Interests[tag]; w > best {
			best = w
			top = tag
		}
	}
	return top
}

// TrackPlaceView records a view of an entity: move-to-front insertion into
// the capped history, plus an interest bump for the derived category tag
// when a category is known.
func (s *Store) TrackPlaceView(id string, categoryTag string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	s.ensureLoaded()

	// Remove any existing occurrence, then prepend
	places := s.profile.ViewedPlaces
	for i, existing := range places {
		if existing == id {
			places = append(places[:i], places[i+1:]...)
			break
		}
	}
	places = append([]string{id}, places...)
	if len(places) > s.historyCap {
		places = places[:s.historyCap]
	}
	s.profile.ViewedPlaces = places
	s.persist()
	s.mu.Unlock()

	if categoryTag != "" {
		s.TrackInterest(categoryTag, DefaultInterestWeight)
	}
}

// SaveLastState overwrites the single navigation snapshot slot
func (s *Store) SaveLastState(state LastState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	s.profile.LastState = &state
	s.persist()
}

// Archetypes derives the coarse behavioral labels for the current profile.
// Derived on read, never stored.
func (s *Store) Archetypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()
	return ComputeArchetypes(*s.profile, s.thresholds)
}

// RecordVisit counts a visit for the current UTC calendar day. Repeat calls
// on the same day are no-ops, so the count moves at most once per day per
// device. Embedders call this once on startup.
func (s *Store) RecordVisit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded()

	today := s.now().UTC().Format("2006-01-02")
	if s.profile.LastVisitDay == today {
		return
	}
	s.profile.VisitCount++
	s.profile.LastVisitDay = today
	s.persist()
}

// ensureLoaded loads or creates the profile. Callers must hold s.mu.
func (s *Store) ensureLoaded() {
	if s.profile == nil {
		s.profile = s.load()
	}
}

func (s *Store) load() *BehaviorProfile {
	fresh := &BehaviorProfile{Interests: make(map[string]float64)}

	raw, ok, err := s.storage.Get(s.storageKey)
	if err != nil {
		logger.WarnWithError("behavior profile load failed, starting fresh", err)
		return fresh
	}
	if !ok {
		return fresh
	}

	var p BehaviorProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logger.WarnWithError("behavior profile corrupt, starting fresh", err)
		return fresh
	}
	if p.Interests == nil {
		p.Interests = make(map[string]float64)
	}
	return &p
}

// persist writes the profile through before returning. Failures are logged
// and swallowed: the profile is advisory and rebuildable.
func (s *Store) persist() {
	raw, err := json.Marshal(s.profile)
	if err != nil {
		logger.WarnWithError("behavior profile marshal failed", err)
		return
	}
	if err := s.storage.Set(s.storageKey, string(raw)); err != nil {
		logger.Log.Warn("behavior profile persist failed",
			zap.String("key", s.storageKey),
			zap.Error(err),
		)
	}
}

// snapshot deep-copies the profile. Callers must hold s.mu.
func (s *Store) snapshot() BehaviorProfile {
	p := *s.profile
	p.Interests = make(map[string]float64, len(s.profile.Interests))
	for k, v := range s.profile.Interests {
		p.Interests[k] = v
	}
	p.InterestOrder = append([]string(nil), s.profile.InterestOrder...)
	p.ViewedPlaces = append([]string(nil), s.profile.ViewedPlaces...)
	if s.profile.LastState != nil {
		st := *s.profile.LastState
		p.LastState = &st
	}
	return p
}

// Tag builds the conventional "<domain>_<categorySlug>" interest tag
func Tag(domain, categorySlug string) string {
	if domain == "" || categorySlug == "" {
		return ""
	}
	return domain + "_" + categorySlug
}
