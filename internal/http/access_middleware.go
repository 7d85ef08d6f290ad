// Package http holds the gin middleware shared by the front and admin routers.
package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/security"
	"github.com/gin-gonic/gin"
)

// Context keys set by TokenAuthMiddleware.
const (
	ContextIdentity = "identity"
	ContextToken    = "authToken"
)

// TokenResolver maps a clear session token to its user and credential record.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (models.User, models.AuthToken, error)
}

var _ TokenResolver = (*credentials.Store)(nil)

// TokenAuthMiddleware resolves the session token of the request through the
// auth cache and stores the identity in the context. When required is false,
// requests without a token pass through anonymously; a token that does not
// resolve is always rejected.
func TokenAuthMiddleware(resolver TokenResolver, authCache *cache.AuthCache, cookieName string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c.Request, cookieName)
		if token == "" {
			if required {
				pwerrors.Abort(c, pwerrors.Unauthorized("not_authenticated", "authentication credentials were not provided"))
				return
			}
			c.Next()
			return
		}

		identity, errResolve := authCache.Resolve(c.Request.Context(), security.TokenDigest(token), func(ctx context.Context) (cache.Identity, error) {
			user, record, err := resolver.ResolveToken(ctx, token)
			if err != nil {
				return cache.Identity{}, err
			}
			return cache.NewIdentity(user, record), nil
		})
		if errResolve != nil {
			pwerrors.Abort(c, errResolve)
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// ExtractToken reads the session token from the Authorization header
// ("Token <key>" or "Bearer <key>") or, failing that, from the session cookie.
func ExtractToken(r *http.Request, cookieName string) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if found && (strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			return strings.TrimSpace(value)
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	cookie, errCookie := r.Cookie(cookieName)
	if errCookie != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// IdentityFromContext returns the identity stored by TokenAuthMiddleware.
func IdentityFromContext(c *gin.Context) (cache.Identity, bool) {
	value, ok := c.Get(ContextIdentity)
	if !ok {
		return cache.Identity{}, false
	}
	identity, ok := value.(cache.Identity)
	return identity, ok
}

// TokenFromContext returns the clear session token of the request.
func TokenFromContext(c *gin.Context) string {
	return c.GetString(ContextToken)
}

// IsExternal reports whether the gateway marked the request as coming from
// outside the cluster.
func IsExternal(c *gin.Context, header string) bool {
	if header == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader(header)), "EXTERNAL")
}
