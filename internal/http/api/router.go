// Package api assembles the gin engine of the service.
package api

import (
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	authhttp "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api/admin"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api/front"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/permission"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/policies"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services are the components served over HTTP.
type Services struct {
	DB          *gorm.DB
	Store       cache.Store
	Credentials *credentials.Store
	AuthCache   *cache.AuthCache
	MFA         *mfa.Service
	Registry    *routes.Registry
	Policies    *policies.Service
	Authorizer  *permission.Authorizer
	Rows        *permission.RowResolver
}

// NewRouter builds the engine with every route registered.
func NewRouter(cfg config.Config, svc Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.CustomRecovery(pwerrors.Recover), authhttp.RequestLogger())
	if errProxies := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); errProxies != nil {
		log.WithError(errProxies).Warn("invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:          svc.DB,
		Store:       svc.Store,
		Credentials: svc.Credentials,
		AuthCache:   svc.AuthCache,
		Registry:    svc.Registry,
		Policies:    svc.Policies,
		CookieName:  cfg.Auth.CookieName,
	})
	front.RegisterFrontRoutes(engine, front.Deps{
		Auth:        cfg.Auth,
		Credentials: svc.Credentials,
		AuthCache:   svc.AuthCache,
		MFA:         svc.MFA,
		Authorizer:  svc.Authorizer,
		Rows:        svc.Rows,
	})
	return engine
}
