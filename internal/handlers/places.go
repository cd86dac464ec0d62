package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/dalilsuez/backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetPlace handles GET /api/v1/places/:id
func (h *Handlers) GetPlace(c *gin.Context) {
	id := c.Param("id")

	var place models.Place
	err := h.kernel.DB().WithContext(c.Request.Context()).First(&place, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, apperrors.NotFound("place"))
		return
	} else if err != nil {
		respondError(c, apperrors.Internal("failed to load place"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"place": place})
}

// ListPlaceReviews handles GET /api/v1/places/:id/reviews
func (h *Handlers) ListPlaceReviews(c *gin.Context) {
	id := c.Param("id")

	var reviews []models.Review
	err := h.kernel.DB().WithContext(c.Request.Context()).
		Where("place_id = ?", id).
		Order("created_at DESC").
		Limit(50).
		Find(&reviews).Error
	if err != nil {
		respondError(c, apperrors.Internal("failed to load reviews"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
