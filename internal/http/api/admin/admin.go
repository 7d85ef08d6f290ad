// Package admin registers the health, cache, route registry and policy
// administration routes.
package admin

import (
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api/admin/handlers"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/metrics"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/policies"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the services behind the admin routes.
type Deps struct {
	DB          *gorm.DB
	Store       cache.Store
	Credentials *credentials.Store
	AuthCache   *cache.AuthCache
	Registry    *routes.Registry
	Policies    *policies.Service
	CookieName  string
}

// RegisterAdminRoutes registers the unauthenticated probes and the staff and
// superuser routes.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Store)
	r.GET("/health-check", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := r.Group("")
	authed.Use(authhttp.TokenAuthMiddleware(deps.Credentials, deps.AuthCache, deps.CookieName, true))
	authed.Use(adminPermissionMiddleware())

	cacheHandler := handlers.NewCacheHandler(deps.Store)
	authed.POST("/clear-cache", cacheHandler.Clear)

	routesHandler := handlers.NewRoutesHandler(deps.Registry)
	authed.POST("/services/register", routesHandler.RegisterService)
	authed.POST("/routes/register", routesHandler.RegisterRoute)
	authed.GET("/routes", routesHandler.List)
	authed.DELETE("/routes/:id", routesHandler.Delete)

	if deps.Policies == nil {
		return
	}
	policiesHandler := handlers.NewPoliciesHandler(deps.Policies)
	authed.POST("/policies", policiesHandler.CreatePolicy)
	authed.GET("/policies", policiesHandler.ListPolicies)
	authed.GET("/policies/:id", policiesHandler.GetPolicy)
	authed.PUT("/policies/:id", policiesHandler.UpdatePolicy)
	authed.DELETE("/policies/:id", policiesHandler.DeletePolicy)
	authed.POST("/policies/:id/assignments", policiesHandler.Assign)
	authed.DELETE("/policy-users/:id", policiesHandler.UnassignUser)
	authed.DELETE("/policy-groups/:id", policiesHandler.UnassignGroup)

	authed.POST("/groups", policiesHandler.CreateGroup)
	authed.DELETE("/groups/:id", policiesHandler.DeleteGroup)
	authed.POST("/groups/:id/members", policiesHandler.AddMember)
	authed.DELETE("/groups/:id/members/:user_id", policiesHandler.RemoveMember)

	authed.POST("/row-permissions", policiesHandler.CreateRowPermission)
	authed.DELETE("/row-permissions/:id", policiesHandler.DeleteRowPermission)
	authed.POST("/row-permissions/:id/grants", policiesHandler.GrantRow)
	authed.DELETE("/row-permissions/:id/users/:user_id", policiesHandler.RevokeRowUser)
	authed.DELETE("/row-permissions/:id/groups/:group_id", policiesHandler.RevokeRowGroup)
}
