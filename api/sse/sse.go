// Package sse streams engine notifications to hosts as server-sent events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	mw "github.com/kasuganosora/codepals/middleware"
)

const defaultKeepalive = 30 * time.Second

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	c         cache.Cache
	sec       config.SecurityConfig
	channel   string
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler streaming the given channel.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, channel string, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, sec: sec, channel: channel, keepalive: defaultKeepalive, logger: logger}
}

// SetKeepalive changes the interval of keepalive comments.
func (h *Handler) SetKeepalive(d time.Duration) { h.keepalive = d }

// ServeSSE handles GET /api/notifications?token=<jwt>.
// Browsers' EventSource cannot set headers, so the token may come as a query
// parameter as well as a Bearer header. Each notification is sent with its
// kind as the event name.
func (h *Handler) ServeSSE(c *gin.Context) {
	if h.sec.JWTSecret != "" {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			if hdr := c.GetHeader("Authorization"); len(hdr) > 7 && hdr[:7] == "Bearer " {
				tokenStr = hdr[7:]
			}
		}
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if _, err := mw.Authenticate(c.Request.Context(), tokenStr, h.sec.JWTSecret, h.c); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
	}

	msgCh, unsub, err := h.pubsub.Subscribe(c.Request.Context(), h.channel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventName(msg.Payload), msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func eventName(payload string) string {
	var head struct {
		Kind string `json:"kind"`
	}
	if json.Unmarshal([]byte(payload), &head) != nil || head.Kind == "" {
		return "message"
	}
	return head.Kind
}
