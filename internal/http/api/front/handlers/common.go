package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
)

// SessionCookie describes the cookie set for external-origin logins.
type SessionCookie struct {
	Name           string
	ExternalHeader string
}

// set writes token as an httponly, secure, same-site cookie when the request
// came from outside the cluster.
func (s SessionCookie) set(c *gin.Context, token string, expiry time.Time) {
	if token == "" || s.Name == "" || !authhttp.IsExternal(c, s.ExternalHeader) {
		return
	}
	maxAge := int(time.Until(expiry).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.Name, token, maxAge, "/", "", true, true)
}

// clear expires the session cookie.
func (s SessionCookie) clear(c *gin.Context) {
	if s.Name == "" {
		return
	}
	if _, errCookie := c.Request.Cookie(s.Name); errCookie != nil {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.Name, "", -1, "/", "", true, true)
}

// requireIdentity returns the caller identity or renders Unauthorized.
func requireIdentity(c *gin.Context) (cache.Identity, bool) {
	identity, ok := authhttp.IdentityFromContext(c)
	if !ok {
		pwerrors.Abort(c, pwerrors.Unauthorized("not_authenticated", "authentication credentials were not provided"))
		return cache.Identity{}, false
	}
	return identity, true
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || id == 0 {
		pwerrors.Abort(c, pwerrors.WrongParameters("invalid "+name, map[string]any{name: raw}))
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body or renders WrongParameters.
func bindJSON(c *gin.Context, dst any) bool {
	if errBind := decodeJSON(c, dst); errBind != nil {
		pwerrors.Abort(c, errBind)
		return false
	}
	return true
}

func decodeJSON(c *gin.Context, dst any) error {
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		return pwerrors.WrongParameters("invalid json", map[string]any{"error": "invalid_json"})
	}
	return nil
}
