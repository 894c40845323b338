package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bookingRepo "tutorhive/database/repository/booking"
	"tutorhive/services/scheduling"
	"tutorhive/utils"
)

// respondError maps the scheduling error taxonomy onto HTTP. Conflicts and
// race losses look identical to callers (pick another slot); race losses are
// logged separately upstream.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		conflictErr   *scheduling.ConflictError
		validationErr *scheduling.ValidationError
		raceErr       *scheduling.RaceLossError
		payoutErr     *scheduling.PayoutUnavailableError
		transientErr  *scheduling.GatewayTransientError
	)

	switch {
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, utils.ErrorResponse{
			Message: conflictErr.Message,
			Code:    string(conflictErr.Reason),
			Details: conflictErr.Date,
		})
	case errors.As(err, &raceErr):
		c.JSON(http.StatusConflict, utils.ErrorResponse{
			Message: "slot was taken by a concurrent request, please pick another",
			Code:    "race_loss",
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, utils.ErrorResponse{
			Message: validationErr.Error(),
			Code:    "validation",
		})
	case errors.As(err, &payoutErr):
		c.JSON(http.StatusUnprocessableEntity, utils.ErrorResponse{
			Message: "automated payout unavailable, manual refund required",
			Code:    "payout_unavailable",
		})
	case errors.As(err, &transientErr):
		c.JSON(http.StatusBadGateway, utils.ErrorResponse{
			Message: "payment gateway temporarily unavailable",
			Code:    "gateway_transient",
		})
	case errors.Is(err, bookingRepo.ErrNotFound):
		c.JSON(http.StatusNotFound, utils.ErrorResponse{Message: "not found"})
	default:
		logger.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Message: "internal error"})
	}
}
