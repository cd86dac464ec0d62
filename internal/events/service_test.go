package events

import (
	"context"
	"testing"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitializeForTesting()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Place{},
		&models.Listing{},
		&models.UserEvent{},
	))
	return db
}

func eventCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.UserEvent{}).Count(&count).Error)
	return count
}

func TestRecordAppendsRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	outcome, err := svc.Record(context.Background(), "user-1", RecordInput{
		EventType:  models.EventViewItem,
		EntityID:   "listing-1",
		CategoryID: "market_electronics",
		Metadata:   map[string]string{"source": "feed"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	var event models.UserEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, models.EventViewItem, event.EventType)
	require.NotNil(t, event.EntityID)
	assert.Equal(t, "listing-1", *event.EntityID)
	assert.Equal(t, "feed", event.Metadata["source"])
}

func TestRecordUnauthenticatedIsSilentNoOp(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	outcome, err := svc.Record(context.Background(), "", RecordInput{
		EventType: models.EventSearch,
	})

	// Skipped, not an error, and nothing written
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.EqualValues(t, 0, eventCount(t, db))
}

func TestRecordValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	_, err := svc.Record(context.Background(), "user-1", RecordInput{
		EventType: "made_up",
	})
	assert.Error(t, err)

	// view_item and favorite require an entity
	for _, et := range []models.EventType{models.EventViewItem, models.EventFavorite} {
		_, err := svc.Record(context.Background(), "user-1", RecordInput{EventType: et})
		assert.Error(t, err, "event type %s without entity should fail", et)
	}

	// search and view_category don't
	outcome, err := svc.Record(context.Background(), "user-1", RecordInput{
		EventType:  models.EventViewCategory,
		CategoryID: "places_cafes",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	assert.EqualValues(t, 1, eventCount(t, db))
}

func TestRecordViewBatchIncrementsCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	require.NoError(t, db.Create(&models.Place{ID: "p1", Name: "Cafe", Category: "cafes"}).Error)
	require.NoError(t, db.Create(&models.Listing{ID: "l1", SellerID: "s1", Title: "Phone", Category: "electronics", Price: 100}).Error)

	applied, err := svc.RecordViewBatch(context.Background(), "user-1", []ViewBatchEntry{
		{Table: TablePlaces, EntityID: "p1"},
		{Table: TableListings, EntityID: "l1"},
		{Table: "nonsense", EntityID: "x"},
		{Table: TablePlaces, EntityID: "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	var place models.Place
	require.NoError(t, db.First(&place, "id = ?", "p1").Error)
	assert.Equal(t, 1, place.ViewCount)

	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", "l1").Error)
	assert.Equal(t, 1, listing.ViewCount)

	// One view_item row per applied entity for the authenticated caller
	assert.EqualValues(t, 2, eventCount(t, db))
}

func TestRecordViewBatchAnonymousBumpsCountsOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	require.NoError(t, db.Create(&models.Place{ID: "p1", Name: "Cafe", Category: "cafes"}).Error)

	applied, err := svc.RecordViewBatch(context.Background(), "", []ViewBatchEntry{
		{Table: TablePlaces, EntityID: "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	var place models.Place
	require.NoError(t, db.First(&place, "id = ?", "p1").Error)
	assert.Equal(t, 1, place.ViewCount)

	// No identity, no per-user trail
	assert.EqualValues(t, 0, eventCount(t, db))
}

func TestTopInterestForUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, "user-1", RecordInput{
			EventType:  models.EventViewCategory,
			CategoryID: "market_electronics",
		})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, "user-1", RecordInput{
		EventType:  models.EventViewCategory,
		CategoryID: "places_cafes",
	})
	require.NoError(t, err)

	// Another user's events don't bleed in
	_, err = svc.Record(ctx, "user-2", RecordInput{
		EventType:  models.EventViewCategory,
		CategoryID: "places_cafes",
	})
	require.NoError(t, err)

	top, err := svc.TopInterestForUser(ctx, "user-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "market_electronics", top)

	// No signal cases
	top, err = svc.TopInterestForUser(ctx, "user-3", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "", top)

	top, err = svc.TopInterestForUser(ctx, "", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "", top)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	old := models.UserEvent{ID: "e-old", UserID: "user-1", EventType: models.EventSearch, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, db.Create(&old).Error)
	recent := models.UserEvent{ID: "e-new", UserID: "user-1", EventType: models.EventSearch, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&recent).Error)

	evts, err := svc.RecentEvents(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "e-new", evts[0].ID)
}

func TestPruneOlderThan(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	old := models.UserEvent{ID: "e-old", UserID: "user-1", EventType: models.EventSearch, CreatedAt: time.Now().Add(-72 * time.Hour)}
	require.NoError(t, db.Create(&old).Error)
	_, err := svc.Record(ctx, "user-1", RecordInput{EventType: models.EventSearch})
	require.NoError(t, err)

	removed, err := svc.PruneOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.EqualValues(t, 1, eventCount(t, db))
}
