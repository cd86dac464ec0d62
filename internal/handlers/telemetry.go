package handlers

import (
	"net/http"

	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/dalilsuez/backend/internal/events"
	"github.com/dalilsuez/backend/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// RecordEvent handles POST /api/v1/events.
// Identity is optional: anonymous submissions are acknowledged and dropped,
// never rejected, so the client fire-and-forget path stays quiet.
func (h *Handlers) RecordEvent(c *gin.Context) {
	var input events.RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperrors.BadRequest("invalid event payload"))
		return
	}

	userID := c.GetString("user_id")
	ctx, span := h.kernel.Spans().TraceRecordEvent(c.Request.Context(), string(input.EventType), userID != "")
	defer span.End()

	outcome, err := h.kernel.Events().Record(ctx, userID, input)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		respondError(c, apperrors.ValidationError("event", err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": string(outcome)})
}

// viewBatchRequest mirrors the client batcher's flush payload
type viewBatchRequest struct {
	Events []events.ViewBatchEntry `json:"events" binding:"required"`
}

// RecordEventBatch handles POST /api/v1/events/batch: the server side of the
// client view batcher. Applies coalesced view counts; authenticated callers
// additionally get per-view log rows.
func (h *Handlers) RecordEventBatch(c *gin.Context) {
	var req viewBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("invalid batch payload"))
		return
	}

	userID := c.GetString("user_id")
	ctx, span := h.kernel.Spans().TraceViewBatch(c.Request.Context(), len(req.Events))
	defer span.End()

	applied, err := h.kernel.Events().RecordViewBatch(ctx, userID, req.Events)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		respondError(c, apperrors.Internal("failed to apply view batch"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "recorded",
		"applied": applied,
	})
}
