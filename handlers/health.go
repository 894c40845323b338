package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhive/utils"
)

// Health handles GET /health with the latest monitored snapshot.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
