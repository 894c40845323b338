package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhive/services/scheduling"
)

// BookingHandler exposes the scheduling engine over HTTP.
type BookingHandler struct {
	Engine scheduling.Engine
	Logger *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(engine scheduling.Engine, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Engine: engine, Logger: logger}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req scheduling.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	result, err := h.Engine.CreateBooking(c.Request.Context(), req)
	if err != nil {
		// A checkout failure still created the booking; return it so the
		// caller can retry checkout against the same tx_ref.
		if result != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"booking": result.Booking,
				"warning": "checkout initiation failed, retry later",
			})
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateRecurring handles POST /api/bookings/recurring.
func (h *BookingHandler) CreateRecurring(c *gin.Context) {
	var req scheduling.RecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	result, err := h.Engine.CreateRecurringBookings(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"result":  result,
				"warning": "checkout initiation failed, retry later",
			})
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// RetryCheckout handles POST /api/bookings/:id/checkout. It re-initiates
// checkout for a pending booking whose first attempt failed.
func (h *BookingHandler) RetryCheckout(c *gin.Context) {
	result, err := h.Engine.RetryCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reschedule handles PATCH /api/bookings/:id/reschedule.
func (h *BookingHandler) Reschedule(c *gin.Context) {
	var req scheduling.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	booking, err := h.Engine.RescheduleBooking(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Complete handles POST /api/bookings/:id/complete.
func (h *BookingHandler) Complete(c *gin.Context) {
	booking, err := h.Engine.CompleteBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Cancel handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	booking, err := h.Engine.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// FileDispute handles POST /api/bookings/:id/dispute.
func (h *BookingHandler) FileDispute(c *gin.Context) {
	var req scheduling.DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	booking, err := h.Engine.FileDispute(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ResolveDispute handles POST /api/bookings/:id/dispute/resolve.
func (h *BookingHandler) ResolveDispute(c *gin.Context) {
	var input struct {
		Outcome string `json:"outcome"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	booking, err := h.Engine.ResolveDispute(c.Request.Context(), c.Param("id"), input.Outcome)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListStudentBookings handles GET /api/students/:id/bookings.
func (h *BookingHandler) ListStudentBookings(c *gin.Context) {
	bookings, err := h.Engine.ListStudentBookings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// ListTutorBookings handles GET /api/tutors/:id/bookings?date=YYYY-MM-DD.
func (h *BookingHandler) ListTutorBookings(c *gin.Context) {
	bookings, err := h.Engine.ListTutorBookings(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
