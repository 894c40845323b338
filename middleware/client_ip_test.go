package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func requestFrom(remote string, headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = remote
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "203.0.113.9",
		clientIP(requestFrom("10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"})))
	assert.Equal(t, "203.0.113.7",
		clientIP(requestFrom("10.0.0.1:1234", map[string]string{"X-Real-IP": "203.0.113.7"})))
	assert.Equal(t, "10.0.0.1", clientIP(requestFrom("10.0.0.1:1234", nil)))

	// A header entry that is not an IP falls through to the socket address.
	assert.Equal(t, "10.0.0.1",
		clientIP(requestFrom("10.0.0.1:1234", map[string]string{"X-Forwarded-For": "not-an-ip"})))
}
