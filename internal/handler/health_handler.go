package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"subview/internal/domain"
	"subview/internal/port"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	catalog port.Catalog
	store   port.LocalStore
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(catalog port.Catalog, store port.LocalStore) *HealthHandler {
	return &HealthHandler{catalog: catalog, store: store}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if len(h.catalog.Submissions()) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "catalog is empty or not loaded"})
		return
	}
	// A missing probe key is fine; only a store failure is unhealthy.
	if _, err := h.store.Get("readyz_probe"); err != nil && !errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "local store not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
