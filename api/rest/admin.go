package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	mw "github.com/kasuganosora/codepals/middleware"
	"github.com/kasuganosora/codepals/scheduler"
)

// AdminHandler serves process status and token management.
type AdminHandler struct {
	sched  *scheduler.Scheduler
	c      cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sched *scheduler.Scheduler, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{sched: sched, c: c, sec: sec, logger: logger}
}

// Health handles GET /api/health.
func (h *AdminHandler) Health(c *gin.Context) {
	tasks := []string{}
	if h.sched != nil {
		tasks = h.sched.ListTickers()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "scheduler_tasks": tasks})
}

// Revoke handles POST /api/token/revoke. It revokes the bearer token the
// request was made with.
func (h *AdminHandler) Revoke(c *gin.Context) {
	if h.sec.JWTSecret == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "token auth disabled"})
		return
	}
	tokenStr := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if err := mw.Revoke(c.Request.Context(), h.c, claims); err != nil {
		h.logger.Error("token revoke failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	h.logger.Info("token revoked", zap.String("host", claims.Host), zap.String("jti", claims.ID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
