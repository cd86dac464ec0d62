// Package events owns the server-side behavior event log: an append-only
// record of typed user interactions, the batched view-count applier, and
// the ad hoc aggregation reads used for analytics and as a recommendation
// fallback signal.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/metrics"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome describes what happened to a telemetry record call. Skipped is a
// success from the caller's perspective: tracking must never block or error
// the user's primary action.
type Outcome string

const (
	OutcomeRecorded Outcome = "recorded"
	OutcomeSkipped  Outcome = "skipped"
)

// RecordInput is one event as submitted by a client
type RecordInput struct {
	EventType  models.EventType  `json:"event_type"`
	EntityID   string            `json:"entity_id,omitempty"`
	CategoryID string            `json:"category_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ViewBatchEntry is one coalesced view from a client batch flush
type ViewBatchEntry struct {
	Table    string `json:"table"`
	EntityID string `json:"entity_id"`
}

// Tables a view batch may target
const (
	TablePlaces   = "places"
	TableListings = "listings"
)

// Service appends to and reads from the user event log
type Service struct {
	db *gorm.DB
}

// NewService creates an event log service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record appends one immutable event row. Without a resolved identity the
// event is dropped and OutcomeSkipped returned with a nil error: the UI
// never surfaces telemetry refusals. Validation failures return an error
// for the transport layer to report, but nothing is ever written twice.
func (s *Service) Record(ctx context.Context, userID string, input RecordInput) (Outcome, error) {
	if userID == "" {
		metrics.Get().EventsSkippedTotal.WithLabelValues("unauthenticated").Inc()
		logger.Log.Debug("telemetry event skipped, no identity resolved",
			zap.String("event_type", string(input.EventType)),
		)
		return OutcomeSkipped, nil
	}

	if !input.EventType.Valid() {
		return OutcomeSkipped, fmt.Errorf("unknown event type %q", input.EventType)
	}
	if input.EventType.RequiresEntity() && input.EntityID == "" {
		return OutcomeSkipped, fmt.Errorf("event type %q requires an entity id", input.EventType)
	}

	event := models.UserEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventType: input.EventType,
		Metadata:  input.Metadata,
	}
	if input.EntityID != "" {
		event.EntityID = &input.EntityID
	}
	if input.CategoryID != "" {
		event.CategoryID = &input.CategoryID
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return OutcomeSkipped, fmt.Errorf("append user event: %w", err)
	}

	metrics.Get().EventsRecordedTotal.WithLabelValues(string(input.EventType)).Inc()
	return OutcomeRecorded, nil
}

// RecordViewBatch applies one flushed client batch: a single view-count
// increment per (table, entity), plus a view_item row per entity when the
// caller is authenticated. Anonymous batches still move the public view
// counters; they just leave no per-user trail. Unknown tables and missing
// rows are skipped quietly, per the no-dangling-reference-enforcement
// contract of the log.
func (s *Service) RecordViewBatch(ctx context.Context, userID string, batch []ViewBatchEntry) (applied int, err error) {
	if len(batch) == 0 {
		return 0, nil
	}

	db := s.db.WithContext(ctx)
	for _, entry := range batch {
		var res *gorm.DB
		switch entry.Table {
		case TablePlaces:
			res = db.Model(&models.Place{}).Where("id = ?", entry.EntityID).
				UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		case TableListings:
			res = db.Model(&models.Listing{}).Where("id = ?", entry.EntityID).
				UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		default:
			metrics.Get().EventsSkippedTotal.WithLabelValues("unknown_table").Inc()
			continue
		}
		if res.Error != nil {
			logger.Log.Warn("view count increment failed",
				zap.String("table", entry.Table),
				zap.String("entity_id", entry.EntityID),
				zap.Error(res.Error),
			)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		applied++

		if userID != "" {
			if _, err := s.Record(ctx, userID, RecordInput{
				EventType: models.EventViewItem,
				EntityID:  entry.EntityID,
				Metadata:  map[string]string{"table": entry.Table},
			}); err != nil {
				logger.WarnWithError("view event append failed", err)
			}
		}
	}

	metrics.Get().ViewBatchesTotal.Inc()
	metrics.Get().ViewBatchSize.Observe(float64(len(batch)))
	return applied, nil
}

// interestRow is the aggregation scan shape
type interestRow struct {
	CategoryID string
	Score      int64
}

// TopInterestForUser scans the user's recent events and returns the category
// tag with the highest interaction count, or "" when there is no signal.
// Client devices normally derive this locally; this read backs analytics
// and the no-local-signal fallback, ordering by created_at rather than
// arrival order since cross-device timestamps may interleave.
func (s *Service) TopInterestForUser(ctx context.Context, userID string, since time.Time) (string, error) {
	if userID == "" {
		return "", nil
	}

	var rows []interestRow
	err := s.db.WithContext(ctx).
		Model(&models.UserEvent{}).
		Select("category_id, COUNT(*) as score").
		Where("user_id = ? AND created_at >= ? AND category_id IS NOT NULL AND category_id <> ''", userID, since).
		Group("category_id").
		Order("score DESC, MIN(created_at) ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return "", fmt.Errorf("aggregate top interest: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].CategoryID, nil
}

// RecentEvents returns the user's newest events, newest first
func (s *Service) RecentEvents(ctx context.Context, userID string, limit int) ([]models.UserEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var evts []models.UserEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&evts).Error
	return evts, err
}

// PruneOlderThan deletes log rows created before the cutoff. The log itself
// is unbounded; retention belongs to the operator (admin CLI).
func (s *Service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.UserEvent{})
	return res.RowsAffected, res.Error
}

// CountForUser reports how many rows the user has in the log (test hook and
// admin stats)
func (s *Service) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserEvent{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
