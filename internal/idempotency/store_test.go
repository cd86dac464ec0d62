package idempotency

import (
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
	require.NoError(t, db.AutoMigrate(&models.IdempotencyKey{}))
	return db
}

func TestLookupMissThenStore(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, found := store.Lookup("key-A")
	assert.False(t, found)

	store.Store("key-A", "user-1", StoredResponse{Status: 201, Body: []byte(`{"id":1}`)})

	resp, found := store.Lookup("key-A")
	require.True(t, found)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
}

func TestExecuteRunsOnce(t *testing.T) {
	store := NewStore(setupTestDB(t))

	executions := 0
	op := func() StoredResponse {
		executions++
		return StoredResponse{Status: 201, Body: []byte(`{"id":1}`)}
	}

	first := store.Execute("key-A", "user-1", op)

	// Replays, including many of them, return the stored response verbatim
	// without re-executing the side effect
	var last StoredResponse
	for i := 0; i < 99; i++ {
		last = store.Execute("key-A", "user-1", op)
	}

	assert.Equal(t, 1, executions)
	assert.Equal(t, first, last)
}

func TestEmptyBodyStillShortCircuits(t *testing.T) {
	store := NewStore(setupTestDB(t))

	store.Store("key-empty", "user-1", StoredResponse{Status: 204, Body: nil})

	executions := 0
	resp := store.Execute("key-empty", "user-1", func() StoredResponse {
		executions++
		return StoredResponse{Status: 500}
	})

	assert.Equal(t, 0, executions)
	assert.Equal(t, 204, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestStoreUpsertsOnSameKey(t *testing.T) {
	store := NewStore(setupTestDB(t))

	store.Store("key-A", "user-1", StoredResponse{Status: 200, Body: []byte(`first`)})
	store.Store("key-A", "user-1", StoredResponse{Status: 200, Body: []byte(`second`)})

	resp, found := store.Lookup("key-A")
	require.True(t, found)
	assert.Equal(t, []byte(`second`), resp.Body)

	// Still exactly one row for the key
	var count int64
	store.db.Model(&models.IdempotencyKey{}).Where("key = ?", "key-A").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestLookupFailureDegradesToMiss(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	// Simulate storage failure by dropping the table
	require.NoError(t, db.Migrator().DropTable(&models.IdempotencyKey{}))

	_, found := store.Lookup("key-A")
	assert.False(t, found)

	// Execute still runs the operation and returns its result
	resp := store.Execute("key-A", "user-1", func() StoredResponse {
		return StoredResponse{Status: 201, Body: []byte(`ok`)}
	})
	assert.Equal(t, 201, resp.Status)
}

func TestPruneOlderThan(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	store.Store("old", "user-1", StoredResponse{Status: 200})
	db.Model(&models.IdempotencyKey{}).Where("key = ?", "old").
		Update("created_at", time.Now().Add(-48*time.Hour))
	store.Store("new", "user-1", StoredResponse{Status: 200})

	removed, err := store.PruneOlderThan(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, found := store.Lookup("new")
	assert.True(t, found)
	_, found = store.Lookup("old")
	assert.False(t, found)
}
