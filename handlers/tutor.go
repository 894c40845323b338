package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhive/models"
	"tutorhive/services/scheduling"
)

// TutorHandler exposes tutor availability management.
type TutorHandler struct {
	Engine scheduling.Engine
	Logger *zap.Logger
}

// NewTutorHandler constructs a TutorHandler.
func NewTutorHandler(engine scheduling.Engine, logger *zap.Logger) *TutorHandler {
	return &TutorHandler{Engine: engine, Logger: logger}
}

// GetAvailability handles GET /api/tutors/:id/availability.
func (h *TutorHandler) GetAvailability(c *gin.Context) {
	weekly, err := h.Engine.GetWeeklyAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekly": weekly})
}

// SetAvailability handles PUT /api/tutors/:id/availability.
func (h *TutorHandler) SetAvailability(c *gin.Context) {
	var input struct {
		Weekly models.WeeklyAvailability `json:"weekly"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Engine.SetWeeklyAvailability(c.Request.Context(), c.Param("id"), input.Weekly); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekly": input.Weekly})
}
