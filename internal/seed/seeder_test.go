package seed

import (
	"testing"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitializeForTesting()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Place{},
		&models.Listing{},
		&models.Review{},
		&models.UserEvent{},
		&models.IdempotencyKey{},
	))
	return db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSeedTest(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedTest())

	assert.EqualValues(t, 3, countRows(t, db, &models.User{}))
	assert.EqualValues(t, 5, countRows(t, db, &models.Place{}))
	assert.EqualValues(t, 5, countRows(t, db, &models.Listing{}))
	assert.EqualValues(t, 20, countRows(t, db, &models.UserEvent{}))

	// Every event carries a category tag from one of the two domains
	var events []models.UserEvent
	require.NoError(t, db.Find(&events).Error)
	for _, e := range events {
		require.NotNil(t, e.CategoryID)
		assert.Regexp(t, `^(places|market)_`, *e.CategoryID)
	}
}

func TestSeedClean(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedTest())
	require.NoError(t, s.Clean())

	assert.EqualValues(t, 0, countRows(t, db, &models.User{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.Place{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.Listing{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.UserEvent{}))
}
