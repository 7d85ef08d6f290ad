package handlers

import (
	"net/http"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CacheHandler clears the shared caches.
type CacheHandler struct {
	store cache.Store
}

// NewCacheHandler constructs a CacheHandler.
func NewCacheHandler(store cache.Store) *CacheHandler {
	return &CacheHandler{store: store}
}

// Clear invalidates every cache namespace.
func (h *CacheHandler) Clear(c *gin.Context) {
	if errInvalidate := cache.InvalidateEverything(c.Request.Context(), h.store); errInvalidate != nil {
		pwerrors.Abort(c, pwerrors.Wrap(pwerrors.KindOther, errInvalidate, "cache invalidation failed"))
		return
	}
	fields := log.Fields{"tags": cache.AllTags}
	if identity, ok := authhttp.IdentityFromContext(c); ok {
		fields["user_id"] = identity.UserID
	}
	log.WithFields(fields).Info("caches cleared")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
