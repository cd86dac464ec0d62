package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/recommend"
	"github.com/gin-gonic/gin"
)

// topInterestWindow bounds the server-side fallback aggregation
const topInterestWindow = 30 * 24 * time.Hour

// GetForYou handles GET /api/v1/recommendations/for-you?tag=&limit=.
// The client normally derives its top interest locally and passes it as the
// tag parameter. When the tag is absent and the caller is authenticated, the
// server falls back to aggregating the user's recent event log. No signal at
// all means an empty list, never an error.
func (h *Handlers) GetForYou(c *gin.Context) {
	tag := c.Query("tag")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(recommend.DefaultLimit)))

	userID := c.GetString("user_id")
	ctx, span := h.kernel.Spans().TraceRecommend(c.Request.Context(), tag, limit)
	defer span.End()

	fallback := false
	if tag == "" && userID != "" {
		derived, err := h.kernel.Events().TopInterestForUser(ctx, userID, time.Now().Add(-topInterestWindow))
		if err != nil {
			logger.WarnWithError("top interest fallback failed", err)
		} else {
			tag = derived
			fallback = tag != ""
		}
	}

	items := h.kernel.Recommender().Recommend(ctx, tag, limit)

	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"tag":      tag,
		"fallback": fallback,
	})
}
