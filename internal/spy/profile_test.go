package spy

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitializeForTesting()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestFreshProfileDefaults(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	p := store.GetProfile()
	assert.Equal(t, 0, p.VisitCount)
	assert.Empty(t, p.Interests)
	assert.Empty(t, p.ViewedPlaces)
	assert.Nil(t, p.LastState)
}

func TestInterestAccumulationAndTopInterest(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.TrackInterest("market_electronics", 3)
	store.TrackInterest("market_food", 1)
	store.TrackInterest("market_electronics", 1)

	p := store.GetProfile()
	assert.Equal(t, 4.0, p.Interests["market_electronics"])
	assert.Equal(t, 1.0, p.Interests["market_food"])
	assert.Equal(t, "market_electronics", store.TopInterest())
}

func TestTopInterestTieBreaksFirstEncountered(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.TrackInterest("market_food", 2)
	store.TrackInterest("places_cafes", 2)

	// Equal weights: the tag tracked first wins, deterministically
	for i := 0; i < 10; i++ {
		assert.Equal(t, "market_food", store.TopInterest())
	}
}

func TestTopInterestEmpty(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	assert.Equal(t, "", store.TopInterest())
}

func TestDefaultInterestWeight(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.TrackInterest("places_cafes", 0)
	store.TrackInterest("places_cafes", -5)

	p := store.GetProfile()
	assert.Equal(t, 2*DefaultInterestWeight, p.Interests["places_cafes"])
}

func TestViewHistoryCapAndEviction(t *testing.T) {
	store := NewStore(NewMemoryStorage(), WithHistoryCap(5))

	for i := 0; i < 6; i++ {
		store.TrackPlaceView(fmt.Sprintf("place-%d", i), "")
	}

	p := store.GetProfile()
	require.Len(t, p.ViewedPlaces, 5)
	// Most recent first; the oldest (place-0) was evicted
	assert.Equal(t, "place-5", p.ViewedPlaces[0])
	assert.NotContains(t, p.ViewedPlaces, "place-0")
}

func TestViewHistoryMoveToFront(t *testing.T) {
	store := NewStore(NewMemoryStorage(), WithHistoryCap(5))

	store.TrackPlaceView("a", "")
	store.TrackPlaceView("b", "")
	store.TrackPlaceView("c", "")

	// Re-viewing b moves it to the front without duplicating it
	store.TrackPlaceView("b", "")

	p := store.GetProfile()
	assert.Equal(t, []string{"b", "c", "a"}, p.ViewedPlaces)
}

func TestTrackPlaceViewBumpsCategoryInterest(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.TrackPlaceView("p1", Tag("places", "restaurants"))

	p := store.GetProfile()
	assert.Equal(t, DefaultInterestWeight, p.Interests["places_restaurants"])
}

func TestVisitCountOncePerDay(t *testing.T) {
	clock := newTestClock()
	store := NewStore(NewMemoryStorage(), WithStoreClock(clock.Now))

	store.RecordVisit()
	store.RecordVisit()
	store.RecordVisit()
	assert.Equal(t, 1, store.GetProfile().VisitCount)

	// Later the same UTC day: still one visit
	clock.Advance(6 * time.Hour)
	store.RecordVisit()
	assert.Equal(t, 1, store.GetProfile().VisitCount)

	// Next calendar day counts again
	clock.Advance(24 * time.Hour)
	store.RecordVisit()
	assert.Equal(t, 2, store.GetProfile().VisitCount)
}

func TestSaveLastStateSingleSlot(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	store.SaveLastState(LastState{Pathname: "/places", ScrollY: 120})
	store.SaveLastState(LastState{
		Pathname: "/market",
		Category: "electronics",
		Filters:  map[string]string{"sort": "price"},
		ScrollY:  40,
	})

	p := store.GetProfile()
	require.NotNil(t, p.LastState)
	assert.Equal(t, "/market", p.LastState.Pathname)
	assert.Equal(t, 40, p.LastState.ScrollY)
}

func TestProfileSurvivesStoreRestart(t *testing.T) {
	storage := NewMemoryStorage()

	first := NewStore(storage)
	first.TrackInterest("market_electronics", 3)
	first.TrackPlaceView("p1", "")

	// A new store over the same storage sees the persisted profile
	second := NewStore(storage)
	p := second.GetProfile()
	assert.Equal(t, 3.0, p.Interests["market_electronics"])
	assert.Equal(t, []string{"p1"}, p.ViewedPlaces)
	assert.Equal(t, "market_electronics", second.TopInterest())
}

func TestCorruptStorageStartsFresh(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(DefaultStorageKey, "{not json"))

	store := NewStore(storage)
	p := store.GetProfile()
	assert.Equal(t, 0, p.VisitCount)
	assert.Empty(t, p.Interests)
}

func TestFileStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)

	_, ok, err := storage.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Set("profile", `{"visit_count":2}`))
	v, ok, err := storage.Get("profile")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"visit_count":2}`, v)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	store.TrackInterest("market_food", 1)

	p := store.GetProfile()
	p.Interests["market_food"] = 99
	p.ViewedPlaces = append(p.ViewedPlaces, "rogue")

	assert.Equal(t, 1.0, store.GetProfile().Interests["market_food"])
	assert.Empty(t, store.GetProfile().ViewedPlaces)
}

func TestArchetypes(t *testing.T) {
	testCases := []struct {
		name     string
		profile  BehaviorProfile
		expected []string
	}{
		{
			name:     "brand new device",
			profile:  BehaviorProfile{VisitCount: 0},
			expected: []string{ArchetypeNewUser, ArchetypeBasic},
		},
		{
			name:     "intermediate visitor",
			profile:  BehaviorProfile{VisitCount: 5},
			expected: []string{ArchetypeIntermediate},
		},
		{
			name:     "advanced visitor",
			profile:  BehaviorProfile{VisitCount: 15},
			expected: []string{ArchetypeAdvanced},
		},
		{
			name: "market dominated",
			profile: BehaviorProfile{
				VisitCount: 5,
				Interests:  map[string]float64{"market_electronics": 6, "places_cafes": 2},
			},
			expected: []string{ArchetypeIntermediate, ArchetypeBargainHunter},
		},
		{
			name: "places dominated",
			profile: BehaviorProfile{
				VisitCount: 15,
				Interests:  map[string]float64{"places_cafes": 9, "market_food": 1},
			},
			expected: []string{ArchetypeAdvanced, ArchetypeExplorer},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeArchetypes(tc.profile, DefaultThresholds))
		})
	}
}
