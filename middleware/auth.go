package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
)

const (
	HostKey        = "host"
	revokedPrefix  = "codepals:revoked:"
	revokeCheckTTL = 2 * time.Second
)

// Auth validates the Bearer JWT and rejects revoked tokens. With no secret
// configured every request passes; the API is then only guarded by the IP
// allow-list.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if sec.JWTSecret == "" {
			ctx.Next()
			return
		}
		tokenStr := bearer(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := Authenticate(ctx.Request.Context(), tokenStr, sec.JWTSecret, c)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		ctx.Set(HostKey, claims.Host)
		ctx.Next()
	}
}

func bearer(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errInvalidToken authError = "invalid token"
	errRevoked      authError = "token revoked"
)

// Authenticate parses tokenStr and checks it has not been revoked.
func Authenticate(ctx context.Context, tokenStr, secret string, c cache.Cache) (*Claims, error) {
	claims, err := ParseToken(tokenStr, secret)
	if err != nil {
		return nil, errInvalidToken
	}
	if c == nil || claims.ID == "" {
		return claims, nil
	}
	cacheCtx, cancel := context.WithTimeout(ctx, revokeCheckTTL)
	defer cancel()
	revoked, err := c.Exists(cacheCtx, revokedPrefix+claims.ID)
	if err != nil || revoked {
		return nil, errRevoked
	}
	return claims, nil
}

// Revoke blocks the token with claims until it would have expired anyway.
func Revoke(ctx context.Context, c cache.Cache, claims *Claims) error {
	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx, revokedPrefix+claims.ID, claims.Host, ttl)
}

// GetHost retrieves the authenticated host name from the Gin context.
func GetHost(c *gin.Context) string {
	if v, exists := c.Get(HostKey); exists {
		return v.(string)
	}
	return ""
}
