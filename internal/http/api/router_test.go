package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/config"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/mfa"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/permission"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/policies"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/routes"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type testServer struct {
	engine *gin.Engine
	conn   *gorm.DB
	store  cache.Store
	mu     sync.Mutex
	codes  []string
}

func (s *testServer) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := testutil.OpenDB(t)
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Config{
		Auth: config.AuthConfig{
			SessionTokenTTLSeconds: 3600,
			LoginRatePerSecond:     1000,
			LoginBurst:             1000,
			ExternalOriginHeader:   "X-PUMPWOOD-Ingress-Request",
			CookieName:             "PumpwoodAuthorization",
		},
		MFA: config.MFAConfig{TokenExpirationSeconds: 300, CodeLength: 6},
	}
	srv := &testServer{conn: conn, store: store}

	creds := credentials.NewStore(conn, cfg.Auth.SessionTokenTTL())
	authCache := cache.NewAuthCache(store, time.Minute)
	registry := routes.NewRegistry(conn, nil, store)
	catalog := routes.NewCatalog(map[string]config.ModelConfig{
		"DescriptionModel": {Actions: map[string]config.ActionConfig{"recalculate": {PermissionRole: "can_run_actions"}}},
	})
	resolver := permission.NewResolver(conn, cache.NewPermissionCache(store, time.Minute))
	svc := mfa.NewService(mfa.Options{
		DB:          conn,
		Credentials: creds,
		Backends: map[models.MFAMethodType]mfa.Backend{
			models.MFAMethodSMS: mfa.BackendFunc(func(_ context.Context, _ models.MFAMethod, code string) error {
				srv.mu.Lock()
				defer srv.mu.Unlock()
				srv.codes = append(srv.codes, code)
				return nil
			}),
		},
		Config: cfg.MFA,
	})

	srv.engine = NewRouter(cfg, Services{
		DB:          conn,
		Store:       store,
		Credentials: creds,
		AuthCache:   authCache,
		MFA:         svc,
		Registry:    registry,
		Policies:    policies.NewService(conn, store),
		Authorizer:  permission.NewAuthorizer(registry, permission.NewClassifier(catalog), resolver),
		Rows:        permission.NewRowResolver(conn, cache.NewRowCache(store, time.Minute)),
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/login", map[string]string{"username": username, "password": password}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("login %s: expected session token, got %s", username, rec.Body.String())
	}
	return token
}

func TestHealthCheckAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/health-check", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d", rec.Code)
	}
	s.do(t, http.MethodGet, "/health-check", nil, nil)
	rec := s.do(t, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rec.Code)
	}
}

func TestLoginWithoutMFAAndRetrieveUser(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "alice", "P@ss1")

	token := s.login(t, "alice", "P@ss1")
	rec := s.do(t, http.MethodGet, "/retrieve-authenticated-user", nil, map[string]string{"Authorization": "Token " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["username"] != "alice" {
		t.Fatalf("expected alice, got %s", rec.Body.String())
	}
}

func TestLoginRejectsBadPasswordAndMalformedBody(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "alice", "P@ss1")

	rec := s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "nope"}, nil)
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["type"] != "PumpWoodUnauthorized" {
		t.Fatalf("expected PumpWoodUnauthorized, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice"}, nil)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["type"] != "PumpWoodWrongParameters" {
		t.Fatalf("expected PumpWoodWrongParameters, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExternalLoginSetsCookie(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "alice", "P@ss1")

	rec := s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "P@ss1"},
		map[string]string{"X-PUMPWOOD-Ingress-Request": "EXTERNAL"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookie := rec.Header().Get("Set-Cookie")
	for _, part := range []string{"PumpwoodAuthorization=", "HttpOnly", "Secure", "SameSite=Strict"} {
		if !strings.Contains(cookie, part) {
			t.Fatalf("expected %q in cookie, got %q", part, cookie)
		}
	}

	internal := s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "P@ss1"}, nil)
	if internal.Header().Get("Set-Cookie") != "" {
		t.Fatalf("did not expect a cookie for internal logins")
	}
}

func TestServiceUserExternalLoginIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "svc", "pw", func(u *models.User) { u.IsServiceUser = true })

	rec := s.do(t, http.MethodPost, "/login", map[string]string{"username": "svc", "password": "pw"},
		map[string]string{"X-PUMPWOOD-Ingress-Request": "EXTERNAL"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	payload, _ := decode(t, rec)["payload"].(map[string]any)
	if payload["error"] != mfa.CodeServiceUserExternal {
		t.Fatalf("expected service_user_external, got %v", payload)
	}
}

func TestMFALoginOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	method := models.MFAMethod{UserID: alice.ID, Type: models.MFAMethodSMS, Priority: 1, IsEnabled: true, IsValidated: true, Parameter: "+5511999991234"}
	if err := s.conn.Omit("User").Create(&method).Error; err != nil {
		t.Fatalf("create method: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "P@ss1"}, nil)
	body := decode(t, rec)
	mfaToken, _ := body["mfa_token"].(string)
	if rec.Code != http.StatusOK || mfaToken == "" || body["token"] != nil {
		t.Fatalf("expected pending mfa login, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/mfa/methods", nil, map[string]string{"mfa_token": mfaToken})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"type":"sms"`) {
		t.Fatalf("expected sms method listed, got %d: %s", rec.Code, rec.Body.String())
	}

	wrong := "000000"
	if s.lastCode() == wrong {
		wrong = "111111"
	}
	rec = s.do(t, http.MethodPost, "/mfa/validate", map[string]string{"mfa_token": mfaToken, "mfa_code": wrong}, nil)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), mfa.CodeMFACodeNotFound) {
		t.Fatalf("expected mfa_code_not_found, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/mfa/validate", map[string]string{"mfa_token": mfaToken, "mfa_code": s.lastCode()}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected session, got %d: %s", rec.Code, rec.Body.String())
	}
	if token, _ := decode(t, rec)["token"].(string); token == "" {
		t.Fatalf("expected session token, got %s", rec.Body.String())
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	token := s.login(t, "alice", "P@ss1")
	auth := map[string]string{"Authorization": "Token " + token}

	if rec := s.do(t, http.MethodGet, "/retrieve-authenticated-user", nil, auth); rec.Code != http.StatusOK {
		t.Fatalf("expected token to work, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/logout", nil, auth); rec.Code != http.StatusOK {
		t.Fatalf("expected logout, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, "/retrieve-authenticated-user", nil, auth); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rec.Code)
	}
}

func TestCheckPermission(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	route := testutil.CreateRoute(t, s.conn, "DescriptionModel", "/rest/descriptionmodel/", models.RouteTypeEndpoint)
	testutil.CreateRoute(t, s.conn, "static", "/static/", models.RouteTypeStatic)
	policy := models.PermissionPolicy{Description: "list only", RouteID: route.ID, CanList: models.PolicyAllow}
	if err := s.conn.Create(&policy).Error; err != nil {
		t.Fatalf("create policy: %v", err)
	}
	if err := s.conn.Create(&models.PolicyUser{UserID: alice.ID, PolicyID: policy.ID, GeneralPolicy: models.GeneralPolicyCustom, Priority: 1}).Error; err != nil {
		t.Fatalf("assign policy: %v", err)
	}
	auth := map[string]string{"Authorization": "Token " + s.login(t, "alice", "P@ss1")}

	rec := s.do(t, http.MethodPost, "/check-permission", map[string]string{"path": "/rest/descriptionmodel/list/", "method": "post"}, auth)
	if rec.Code != http.StatusOK || decode(t, rec)["role"] != "can_list" {
		t.Fatalf("expected list to be allowed, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/check-permission", map[string]string{"path": "/rest/descriptionmodel/delete/1/", "method": "delete"}, auth)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "can_delete") {
		t.Fatalf("expected forbidden naming can_delete, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/check-permission", map[string]string{"path": "/static/app.js", "method": "get"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous static access, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/check-permission", map[string]string{"path": "/rest/descriptionmodel/list/", "method": "post"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected anonymous endpoint access to be unauthorized, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/check-permission", map[string]string{"path": "/unknown/list/", "method": "post"}, auth)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unknown route to be not found, got %d", rec.Code)
	}
}

func TestRowPermissions(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	tag := models.RowPermission{Name: "finance"}
	if err := s.conn.Create(&tag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if err := s.conn.Create(&models.RowPermissionUser{RowPermissionID: tag.ID, UserID: alice.ID}).Error; err != nil {
		t.Fatalf("assign tag: %v", err)
	}
	auth := map[string]string{"Authorization": "Token " + s.login(t, "alice", "P@ss1")}

	rec := s.do(t, http.MethodGet, "/row-permissions", nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	tags, _ := decode(t, rec)["row_permissions"].([]any)
	if len(tags) != 1 || tags[0] != float64(tag.ID) {
		t.Fatalf("expected tag %d, got %v", tag.ID, tags)
	}
}

func TestUserMethodsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	auth := map[string]string{"Authorization": "Token " + s.login(t, "alice", "P@ss1")}

	rec := s.do(t, http.MethodPost, "/mfa/user-methods", map[string]any{"type": "sms", "priority": 1, "parameter": "+5511999991234"}, auth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	method, _ := decode(t, rec)["method"].(map[string]any)
	if method["is_validated"] != true {
		t.Fatalf("expected validated method, got %v", method)
	}
	id := int(method["pk"].(float64))

	rec = s.do(t, http.MethodGet, "/mfa/user-methods", nil, auth)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"priority":1`) {
		t.Fatalf("expected method listed, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodDelete, "/mfa/user-methods/"+strconv.Itoa(id), nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected delete, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRequireLevel(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	testutil.CreateUser(t, s.conn, "staff", "pw", func(u *models.User) { u.IsStaff = true })
	testutil.CreateUser(t, s.conn, "root", "pw", func(u *models.User) { u.IsSuperuser = true })
	alice := map[string]string{"Authorization": "Token " + s.login(t, "alice", "P@ss1")}
	staff := map[string]string{"Authorization": "Token " + s.login(t, "staff", "pw")}
	root := map[string]string{"Authorization": "Token " + s.login(t, "root", "pw")}

	if rec := s.do(t, http.MethodPost, "/clear-cache", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected anonymous clear-cache to be unauthorized, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/clear-cache", nil, alice); rec.Code != http.StatusForbidden {
		t.Fatalf("expected regular user clear-cache to be forbidden, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/clear-cache", nil, staff); rec.Code != http.StatusForbidden {
		t.Fatalf("expected staff clear-cache to be forbidden, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/clear-cache", nil, root); rec.Code != http.StatusOK {
		t.Fatalf("expected superuser clear-cache, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, "/routes", nil, staff); rec.Code != http.StatusOK {
		t.Fatalf("expected staff to list routes, got %d", rec.Code)
	}
}

func TestRouteRegistrationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.conn, "root", "pw", func(u *models.User) { u.IsSuperuser = true })
	root := map[string]string{"Authorization": "Token " + s.login(t, "root", "pw")}

	rec := s.do(t, http.MethodPost, "/services/register", map[string]string{"name": "pumpwood-auth-app", "url": "http://auth:5000"}, root)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected service registration, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/routes/register", map[string]any{
		"service_name": "pumpwood-auth-app",
		"name":         "DescriptionModel",
		"url_prefix":   "/rest/descriptionmodel",
		"route_type":   "endpoint",
	}, root)
	if rec.Code != http.StatusOK || decode(t, rec)["url_prefix"] != "/rest/descriptionmodel/" {
		t.Fatalf("expected normalized route, got %d: %s", rec.Code, rec.Body.String())
	}
	routeID := int(decode(t, rec)["pk"].(float64))

	rec = s.do(t, http.MethodPost, "/routes/register", map[string]any{
		"service_name": "pumpwood-auth-app",
		"name":         "Overlap",
		"url_prefix":   "/rest/descriptionmodel/sub/",
		"route_type":   "endpoint",
	}, root)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected overlapping prefix to be rejected, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/routes?route_type=endpoint", nil, root)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "DescriptionModel") {
		t.Fatalf("expected route listed, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodDelete, "/routes/"+strconv.Itoa(routeID), nil, root); rec.Code != http.StatusOK {
		t.Fatalf("expected delete, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodDelete, "/routes/"+strconv.Itoa(routeID), nil, root); rec.Code != http.StatusNotFound {
		t.Fatalf("expected second delete to be not found, got %d", rec.Code)
	}
}

func TestPanicRendersTypedError(t *testing.T) {
	s := newTestServer(t)
	s.engine.GET("/explode", func(*gin.Context) { panic("nil map write") })

	rec := s.do(t, http.MethodGet, "/explode", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["type"] != "PumpWoodOtherException" || body["message"] != "internal server error" {
		t.Fatalf("expected typed error body, got %s", rec.Body.String())
	}
}

func TestMalformedLoginIsAudited(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var audit models.LoginAudit
	if err := s.conn.Last(&audit).Error; err != nil {
		t.Fatalf("expected audit row for malformed login: %v", err)
	}
	if audit.Outcome != models.LoginOutcomeFailed || audit.Reason != "invalid_json" || audit.Path != "/login" {
		t.Fatalf("expected failed invalid_json audit on /login, got %+v", audit)
	}
}

func TestPolicyAdministrationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.conn, "alice", "P@ss1")
	testutil.CreateUser(t, s.conn, "root", "pw", func(u *models.User) { u.IsSuperuser = true })
	route := testutil.CreateRoute(t, s.conn, "DescriptionModel", "/rest/descriptionmodel/", models.RouteTypeEndpoint)
	auth := map[string]string{"Authorization": "Token " + s.login(t, "alice", "P@ss1")}
	root := map[string]string{"Authorization": "Token " + s.login(t, "root", "pw")}
	check := map[string]string{"path": "/rest/descriptionmodel/delete/1/", "method": "delete"}

	if rec := s.do(t, http.MethodPost, "/check-permission", check, auth); rec.Code != http.StatusForbidden {
		t.Fatalf("expected delete to be forbidden before any policy, got %d", rec.Code)
	}
	policy := map[string]any{"description": "delete", "route_id": route.ID, "can_delete": "allow"}
	if rec := s.do(t, http.MethodPost, "/policies", policy, auth); rec.Code != http.StatusForbidden {
		t.Fatalf("expected regular user policy write to be forbidden, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/policies", policy, root)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected policy created, got %d: %s", rec.Code, rec.Body.String())
	}
	policyID := strconv.Itoa(int(decode(t, rec)["pk"].(float64)))

	rec = s.do(t, http.MethodPost, "/policies/"+policyID+"/assignments", map[string]any{"user_id": alice.ID, "general_policy": "custom"}, root)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected assignment created, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/check-permission", check, auth); rec.Code != http.StatusOK {
		t.Fatalf("expected delete allowed after assignment, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(t, http.MethodDelete, "/policies/"+policyID, nil, root); rec.Code != http.StatusOK {
		t.Fatalf("expected policy deleted, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPost, "/check-permission", check, auth); rec.Code != http.StatusForbidden {
		t.Fatalf("expected delete forbidden after policy removal, got %d", rec.Code)
	}
}
