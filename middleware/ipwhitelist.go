package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IPWhitelist returns a middleware that only allows requests from the listed
// IPs or CIDR ranges. If the whitelist is empty, all IPs are allowed.
// Entries that parse as neither are ignored.
func IPWhitelist(ips []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(ips))
	var nets []*net.IPNet
	for _, entry := range ips {
		entry = strings.TrimSpace(entry)
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			allowed[ip.String()] = true
		}
	}
	open := len(ips) == 0
	return func(c *gin.Context) {
		if open {
			c.Next()
			return
		}
		ip := net.ParseIP(c.ClientIP())
		if ip != nil && allowed[ip.String()] {
			c.Next()
			return
		}
		for _, n := range nets {
			if ip != nil && n.Contains(ip) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
