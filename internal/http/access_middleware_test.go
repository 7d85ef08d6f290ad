package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/cache"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/credentials"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"
	"github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/testutil"
	"github.com/gin-gonic/gin"
)

type countingResolver struct {
	inner TokenResolver
	calls int
}

func (r *countingResolver) ResolveToken(ctx context.Context, token string) (models.User, models.AuthToken, error) {
	r.calls++
	return r.inner.ResolveToken(ctx, token)
}

func runRequestWithMiddleware(t *testing.T, middleware gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware)
	router.GET("/*path", func(c *gin.Context) {
		if identity, ok := IdentityFromContext(c); ok {
			c.JSON(http.StatusOK, gin.H{"user": identity.Username})
			return
		}
		c.Status(http.StatusNoContent)
	})

	responseRecorder := httptest.NewRecorder()
	router.ServeHTTP(responseRecorder, req)
	return responseRecorder
}

func issueToken(t *testing.T) (*credentials.Store, string) {
	t.Helper()
	conn := testutil.OpenDB(t)
	user := testutil.CreateUser(t, conn, "alice", "pw")
	store := credentials.NewStore(conn, time.Hour)
	token, _, err := store.IssueSessionToken(context.Background(), nil, user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return store, token
}

func TestTokenAuthMiddlewareRejectsMissingToken(t *testing.T) {
	store, _ := issueToken(t)
	authCache := cache.NewAuthCache(cache.NewMemoryStore(0), time.Minute)

	rec := runRequestWithMiddleware(t, TokenAuthMiddleware(store, authCache, "PumpwoodAuthorization", true), httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestTokenAuthMiddlewareOptionalPassesAnonymous(t *testing.T) {
	store, _ := issueToken(t)
	authCache := cache.NewAuthCache(cache.NewMemoryStore(0), time.Minute)

	rec := runRequestWithMiddleware(t, TokenAuthMiddleware(store, authCache, "PumpwoodAuthorization", false), httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected anonymous pass through, got %d", rec.Code)
	}
}

func TestTokenAuthMiddlewareRejectsUnknownToken(t *testing.T) {
	store, _ := issueToken(t)
	authCache := cache.NewAuthCache(cache.NewMemoryStore(0), time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Token not-a-real-token")
	rec := runRequestWithMiddleware(t, TokenAuthMiddleware(store, authCache, "PumpwoodAuthorization", false), req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestTokenAuthMiddlewareCachesIdentity(t *testing.T) {
	store, token := issueToken(t)
	resolver := &countingResolver{inner: store}
	authCache := cache.NewAuthCache(cache.NewMemoryStore(0), time.Minute)
	middleware := TokenAuthMiddleware(resolver, authCache, "PumpwoodAuthorization", true)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Token "+token)
		rec := runRequestWithMiddleware(t, middleware, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one credential store lookup, got %d", resolver.calls)
	}
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer abc")
	if got := ExtractToken(req, "PumpwoodAuthorization"); got != "abc" {
		t.Fatalf("expected bearer token, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic abc")
	if got := ExtractToken(req, "PumpwoodAuthorization"); got != "" {
		t.Fatalf("expected basic auth to be ignored, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "PumpwoodAuthorization", Value: "from-cookie"})
	if got := ExtractToken(req, "PumpwoodAuthorization"); got != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", got)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	l := NewRateLimiter(1, 2)
	now := time.Now()
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("expected burst of 2 to pass")
	}
	if l.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("expected other client to have its own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("expected token to refill after one second")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	first := runRequestWithMiddleware(t, l.Middleware(), httptest.NewRequest(http.MethodGet, "/login", nil))
	second := runRequestWithMiddleware(t, l.Middleware(), httptest.NewRequest(http.MethodGet, "/login", nil))
	if first.Code != http.StatusNoContent || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 204 then 429, got %d then %d", first.Code, second.Code)
	}
}
