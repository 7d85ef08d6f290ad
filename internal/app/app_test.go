package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/http/api"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/pwerrors"
	"github.com/gin-gonic/gin"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "auth.db")
	cfg.Cache.Backend = "memory"
	return cfg
}

func TestCreateSuperuser(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	user, err := CreateSuperuser(ctx, cfg, CreateSuperuserParams{Username: "admin", Email: "Admin@Example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("create superuser: %v", err)
	}
	if !user.IsSuperuser || !user.IsStaff || !user.IsActive {
		t.Fatalf("expected active staff superuser, got %+v", user)
	}
	if user.Email != "admin@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}

	_, errDuplicate := CreateSuperuser(ctx, cfg, CreateSuperuserParams{Username: "admin", Password: "other"})
	if !pwerrors.Is(errDuplicate, pwerrors.KindWrongParameters) {
		t.Fatalf("expected duplicate username to be rejected, got %v", errDuplicate)
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 2; i++ {
		if err := Migrate(context.Background(), cfg); err != nil {
			t.Fatalf("migrate run %d: %v", i, err)
		}
	}
}

func TestBuildServicesServesLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	conn, err := openMigrated(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	svc := buildServices(cfg, conn, store)
	if _, errCreate := svc.Credentials.CreateUser(context.Background(), credentials.NewUser{Username: "alice", Password: "pw"}); errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	engine := api.NewRouter(cfg, svc)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health-check", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy service, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token"`) {
		t.Fatalf("expected session token, got %d: %s", rec.Code, rec.Body.String())
	}
}
