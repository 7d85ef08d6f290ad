package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/db"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/metrics"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/permission"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/policies"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/retention"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// CreateSuperuserParams holds inputs for superuser creation.
type CreateSuperuserParams struct {
	Username string
	Email    string
	Password string
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// CreateSuperuser migrates the database and inserts a superuser account.
func CreateSuperuser(ctx context.Context, cfg config.Config, params CreateSuperuserParams) (models.User, error) {
	conn, err := openMigrated(cfg)
	if err != nil {
		return models.User{}, err
	}
	creds := credentials.NewStore(conn, cfg.Auth.SessionTokenTTL())
	return creds.CreateUser(ctx, credentials.NewUser{
		Username:    params.Username,
		Email:       params.Email,
		Password:    params.Password,
		IsStaff:     true,
		IsSuperuser: true,
	})
}

// RunServer boots the auth service and blocks until ctx is done.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, err := openMigrated(cfg)
	if err != nil {
		return err
	}
	store, errStore := cache.Open(cfg.Cache)
	if errStore != nil {
		return errStore
	}
	defer func() {
		if errClose := store.Close(); errClose != nil {
			log.WithError(errClose).Warn("close cache store")
		}
	}()
	if errMetrics := metrics.Register(prometheus.DefaultRegisterer); errMetrics != nil {
		return fmt.Errorf("register metrics: %w", errMetrics)
	}

	retention.NewCleaner(conn, cfg.Retention).Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	engine := api.NewRouter(cfg, buildServices(cfg, conn, store))
	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errServe := make(chan error, 1)
	go func() {
		log.Infof("starting pumpwood-auth on %s", server.Addr)
		if errListen := server.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errServe <- errListen
		}
		close(errServe)
	}()

	select {
	case errListen := <-errServe:
		return errListen
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

func openMigrated(cfg config.Config) (*gorm.DB, error) {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	return conn, nil
}

// buildServices wires every service behind the router.
func buildServices(cfg config.Config, conn *gorm.DB, store cache.Store) api.Services {
	creds := credentials.NewStore(conn, cfg.Auth.SessionTokenTTL())
	registry := routes.NewRegistry(conn, nil, store)
	classifier := permission.NewClassifier(routes.NewCatalog(cfg.ModelsCatalog))
	resolver := permission.NewResolver(conn, cache.NewPermissionCache(store, cfg.Cache.PermissionTTL()))

	backends := map[models.MFAMethodType]mfa.Backend{
		models.MFAMethodAppLog: mfa.AppLogBackend{},
		models.MFAMethodSMS:    mfa.NewTwilioBackend(cfg.Twilio),
	}
	opts := mfa.Options{
		DB:          conn,
		Credentials: creds,
		Backends:    backends,
		Config:      cfg.MFA,
	}
	if provider := mfa.NewOAuthProvider(cfg.SSO); provider != nil {
		opts.SSO = provider
	} else {
		log.Info("sso provider not configured")
	}
	if !cfg.Twilio.Configured() {
		log.Info("twilio sms backend not configured")
	}

	return api.Services{
		DB:          conn,
		Store:       store,
		Credentials: creds,
		AuthCache:   cache.NewAuthCache(store, cfg.Cache.AuthTTL()),
		MFA:         mfa.NewService(opts),
		Registry:    registry,
		Policies:    policies.NewService(conn, store),
		Authorizer:  permission.NewAuthorizer(registry, classifier, resolver),
		Rows:        permission.NewRowResolver(conn, cache.NewRowCache(store, cfg.Cache.RowPermissionTTL())),
	}
}
