package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/dalilsuez/backend/internal/idempotency"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/metrics"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/dalilsuez/backend/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createReviewRequest is the review submission payload
type createReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// CreateReview handles POST /api/v1/places/:id/reviews. This is the guarded
// primary write: auth and the rate limiter run as middleware, and an
// Idempotency-Key header turns client retries into replays of the first
// response instead of duplicate rows.
func (h *Handlers) CreateReview(c *gin.Context) {
	placeID := c.Param("id")
	userID := c.GetString("user_id")

	_, span := h.kernel.Spans().TraceReviewSubmit(c.Request.Context(), placeID)
	defer span.End()

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ValidationError("rating", "rating must be between 1 and 5"))
		return
	}

	idemKey := c.GetHeader("Idempotency-Key")
	if idemKey != "" {
		if cached, found := h.kernel.IdempotencyStore().Lookup(idemKey); found {
			metrics.Get().IdempotencyReplaysTotal.Inc()
			telemetry.MarkReplayed(span)
			c.Data(cached.Status, "application/json", cached.Body)
			return
		}
	}

	status, body := h.createReview(c, placeID, userID, req)

	// Only successful outcomes are worth replaying; a failed attempt should
	// re-execute on retry
	if idemKey != "" && status < 400 {
		h.kernel.IdempotencyStore().Store(idemKey, userID, idempotency.StoredResponse{
			Status: status,
			Body:   body,
		})
	}

	c.Data(status, "application/json", body)
}

// createReview performs the write and returns the response to send (and
// possibly cache)
func (h *Handlers) createReview(c *gin.Context, placeID, userID string, req createReviewRequest) (int, []byte) {
	db := h.kernel.DB().WithContext(c.Request.Context())

	var place models.Place
	err := db.First(&place, "id = ?", placeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return marshalError(apperrors.NotFound("place"))
	} else if err != nil {
		return marshalError(apperrors.Internal("failed to load place"))
	}

	review := models.Review{
		ID:      uuid.New().String(),
		PlaceID: placeID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		// Recompute the denormalized aggregates from the source of truth
		var agg struct {
			Count int64
			Avg   float64
		}
		if err := tx.Model(&models.Review{}).
			Select("COUNT(*) as count, AVG(rating) as avg").
			Where("place_id = ?", placeID).
			Scan(&agg).Error; err != nil {
			return err
		}

		return tx.Model(&models.Place{}).Where("id = ?", placeID).
			Updates(map[string]interface{}{
				"review_count": agg.Count,
				"avg_rating":   agg.Avg,
			}).Error
	})
	if err != nil {
		logger.ErrorWithFields("review write failed", err, logger.WithUserID(userID))
		return marshalError(apperrors.Internal("failed to save review"))
	}

	body, err := json.Marshal(gin.H{"review": review})
	if err != nil {
		return marshalError(apperrors.Internal("failed to encode review"))
	}
	return http.StatusCreated, body
}

// marshalError encodes an API error into the standard envelope
func marshalError(apiErr *apperrors.APIError) (int, []byte) {
	body, _ := json.Marshal(gin.H{"error": apiErr})
	return apiErr.Status, body
}
