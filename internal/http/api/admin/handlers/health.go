package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	healthTimeout = 2 * time.Second
	healthTag     = "health"
)

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	db    *gorm.DB
	store cache.Store
}

// NewHealthHandler constructs a HealthHandler. A nil store skips the cache probe.
func NewHealthHandler(db *gorm.DB, store cache.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// Healthz pings the database and round-trips a cache entry.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := gin.H{"database": "ok"}
	healthy := true
	if errDB := h.pingDB(ctx); errDB != nil {
		log.WithError(errDB).Warn("health check: database unavailable")
		status["database"] = "unavailable"
		healthy = false
	}
	if h.store != nil {
		status["cache"] = "ok"
		if errCache := h.pingCache(ctx); errCache != nil {
			log.WithError(errCache).Warn("health check: cache unavailable")
			status["cache"] = "unavailable"
			healthy = false
		}
	}
	status["ok"] = healthy
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (h *HealthHandler) pingCache(ctx context.Context) error {
	if err := h.store.Set(ctx, healthTag, "ping", []byte("pong"), healthTimeout); err != nil {
		return err
	}
	_, _, err := h.store.Get(ctx, healthTag, "ping")
	return err
}
