// Package front registers the login, MFA and permission query routes.
package front

import (
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api/front/handlers"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/permission"
	"github.com/gin-gonic/gin"
)

// Deps are the services behind the front routes.
type Deps struct {
	Auth        config.AuthConfig
	Credentials *credentials.Store
	AuthCache   *cache.AuthCache
	MFA         *mfa.Service
	Authorizer  *permission.Authorizer
	Rows        *permission.RowResolver
}

// RegisterFrontRoutes registers public and token authenticated routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.MFA == nil {
		return
	}
	cookie := handlers.SessionCookie{Name: deps.Auth.CookieName, ExternalHeader: deps.Auth.ExternalOriginHeader}
	limiter := authhttp.NewRateLimiter(deps.Auth.LoginRatePerSecond, deps.Auth.LoginBurst)

	authHandler := handlers.NewAuthHandler(deps.MFA, deps.Credentials, deps.AuthCache, cookie)
	r.POST("/login", limiter.Middleware(), authHandler.Login)
	r.POST("/mfa/validate", limiter.Middleware(), authHandler.ValidateMFA)

	mfaHandler := handlers.NewMFAHandler(deps.MFA)
	r.GET("/mfa/methods", mfaHandler.Methods)
	r.POST("/mfa/send-code/:method_id", limiter.Middleware(), mfaHandler.SendCode)

	ssoHandler := handlers.NewSSOHandler(deps.MFA, cookie)
	r.POST("/oauth2/authorize", limiter.Middleware(), ssoHandler.Authorize)
	r.GET("/oauth2/callback", ssoHandler.Callback)

	permissionHandler := handlers.NewPermissionHandler(deps.Authorizer, deps.Rows)
	optional := r.Group("")
	optional.Use(authhttp.TokenAuthMiddleware(deps.Credentials, deps.AuthCache, deps.Auth.CookieName, false))
	optional.POST("/check-permission", permissionHandler.Check)

	authed := r.Group("")
	authed.Use(authhttp.TokenAuthMiddleware(deps.Credentials, deps.AuthCache, deps.Auth.CookieName, true))
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/retrieve-authenticated-user", authHandler.RetrieveAuthenticatedUser)
	authed.GET("/row-permissions", permissionHandler.RowPermissions)
	authed.GET("/mfa/user-methods", mfaHandler.ListUserMethods)
	authed.POST("/mfa/user-methods", mfaHandler.CreateUserMethod)
	authed.DELETE("/mfa/user-methods/:id", mfaHandler.DeleteUserMethod)
}
