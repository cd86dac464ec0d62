package handlers

import (
	"net/http"

	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/dalilsuez/backend/internal/kernel"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	kernel *kernel.Kernel
}

// NewHandlers creates a new handlers instance
func NewHandlers(k *kernel.Kernel) *Handlers {
	return &Handlers{kernel: k}
}

// respondError writes a standardized error envelope
func respondError(c *gin.Context, apiErr *apperrors.APIError) {
	c.JSON(apiErr.Status, gin.H{"error": apiErr})
}

// Health reports process liveness and database reachability
func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"

	if sqlDB, err := h.kernel.DB().DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": dbStatus,
	})
}
