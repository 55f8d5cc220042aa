package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
)

func setupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newProtectedRouter(sec config.SecurityConfig, c cache.Cache) *gin.Engine {
	r := gin.New()
	r.Use(Auth(sec, c))
	r.GET("/protected", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, GetHost(ctx))
	})
	return r
}

func call(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var testSec = config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: time.Hour}

func TestAuth_RejectsBadCredentials(t *testing.T) {
	r := newProtectedRouter(testSec, setupTestCache(t))
	foreign, err := IssueToken("vscode", "another-secret", time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": "Token abc123",
		"garbage":   "Bearer notavalidtoken",
		"foreign":   "Bearer " + foreign,
	} {
		assert.Equal(t, http.StatusUnauthorized, call(r, header).Code, name)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	r := newProtectedRouter(testSec, setupTestCache(t))
	tok, err := IssueToken("vscode", testSecret, time.Hour)
	require.NoError(t, err)

	w := call(r, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vscode", w.Body.String())
}

func TestAuth_RevokedToken(t *testing.T) {
	c := setupTestCache(t)
	r := newProtectedRouter(testSec, c)
	tok, err := IssueToken("vscode", testSecret, time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)

	require.NoError(t, Revoke(context.Background(), c, claims))
	assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer "+tok).Code)
}

func TestAuth_DisabledWithoutSecret(t *testing.T) {
	r := newProtectedRouter(config.SecurityConfig{}, nil)
	assert.Equal(t, http.StatusOK, call(r, "").Code)
}

func TestGetHost_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetHost(c))
}

func TestRecovery_CatchesPanic(t *testing.T) {
	r := gin.New()
	r.Use(TraceID())
	r.Use(Recovery(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}

func TestLogger_PassesThrough(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := gin.New()
	r.Use(TraceID())
	r.Use(Logger(logger))
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
