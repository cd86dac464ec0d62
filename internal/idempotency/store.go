// Package idempotency provides a durable key -> response cache used to
// deduplicate retries of spam-prone mutations. The store degrades to a
// cache-miss on any storage failure: the guarded operation must never be
// blocked by the cache being unavailable.
package idempotency

import (
	"errors"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoredResponse is the cached result of a guarded operation
type StoredResponse struct {
	Status int
	Body   []byte
}

// Store reads and writes idempotency records through the shared database,
// so replays are caught across processes.
type Store struct {
	db *gorm.DB
}

// NewStore creates an idempotency store on the given database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Lookup returns the stored response for key, if any. Storage errors are
// logged and reported as not-found so the caller re-executes the operation.
// An empty stored body still counts as found and short-circuits the caller.
func (s *Store) Lookup(key string) (*StoredResponse, bool) {
	var rec models.IdempotencyKey
	err := s.db.Where("key = ?", key).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WarnWithError("idempotency lookup failed, treating as miss", err)
		}
		return nil, false
	}
	return &StoredResponse{Status: rec.ResponseStatus, Body: rec.ResponseBody}, true
}

// Store upserts the response for key. A lost race between two writers with
// the same key ends last-write-wins; callers must derive the key from the
// operation's logical identity so concurrent responses are identical.
// Failures are logged and swallowed: the side effect already happened, and
// the worst outcome of a lost record is one future duplicate execution.
func (s *Store) Store(key string, userID string, resp StoredResponse) {
	rec := models.IdempotencyKey{
		Key:            key,
		UserID:         userID,
		ResponseStatus: resp.Status,
		ResponseBody:   resp.Body,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "response_status", "response_body"}),
	}).Create(&rec).Error
	if err != nil {
		logger.WarnWithError("idempotency store failed, duplicate may re-execute", err)
	}
}

// Execute runs fn under idempotency protection: a stored response for key is
// returned as-is without running fn; otherwise fn runs and its result is
// stored before being returned.
func (s *Store) Execute(key string, userID string, fn func() StoredResponse) StoredResponse {
	if cached, found := s.Lookup(key); found {
		logger.Log.Debug("idempotency hit, replaying stored response",
			zap.String("key", key),
			logger.WithUserID(userID),
		)
		return *cached
	}

	resp := fn()
	s.Store(key, userID, resp)
	return resp
}

// PruneOlderThan deletes records created before the cutoff. Exposed for the
// admin CLI; the store itself never expires records.
func (s *Store) PruneOlderThan(cutoff time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.IdempotencyKey{})
	return res.RowsAffected, res.Error
}
