package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIP resolves the caller's address for rate-limit bucketing. Proxy
// headers win over the socket address; a header entry that does not parse
// as an IP is ignored rather than trusted.
func clientIP(c *gin.Context) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		value := c.GetHeader(header)
		if value == "" {
			continue
		}
		// X-Forwarded-For accumulates one hop per proxy; the first entry
		// is the originating client.
		first := strings.TrimSpace(strings.SplitN(value, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}
