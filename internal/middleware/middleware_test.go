package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/auth"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if id, ok := v[token]; ok {
		return &auth.Claims{UserID: id}, nil
	}
	return nil, errors.New("invalid token")
}

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(staticVerifier{"good": "u1"}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAuthRouter()

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, "No Token Provided"},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "Invalid Token"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, http.StatusOK, "u1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "good"}) }, http.StatusOK, "u1"},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, http.StatusUnauthorized, "No Token Provided"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestLimiterStoreAllowsBurst(t *testing.T) {
	store := NewLimiterStore(1, 2, time.Hour)
	defer store.Stop()

	assert.True(t, store.Allow("a"))
	assert.True(t, store.Allow("a"))
	assert.False(t, store.Allow("a"))
	assert.True(t, store.Allow("b"))
}

func TestLimiterStoreEvictsIdle(t *testing.T) {
	store := NewLimiterStore(1, 1, time.Hour)
	defer store.Stop()

	require.True(t, store.Allow("a"))
	require.False(t, store.Allow("a"))
	store.evictIdle(time.Now().Add(time.Minute))
	assert.True(t, store.Allow("a"))
}

func TestLimiterStoreStopTwice(t *testing.T) {
	store := NewLimiterStore(1, 1, time.Hour)
	store.Stop()
	assert.NotPanics(t, store.Stop)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewLimiterStore(1, 1, time.Hour)
	defer store.Stop()

	router := gin.New()
	router.POST("/login", RateLimit(store), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/signup", RateLimit(store), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("/login").Code)
	limited := do("/login")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do("/signup").Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS("http://localhost:5173"))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
