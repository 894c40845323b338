package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutorhive/services/payment"
)

// PaymentHandler receives gateway webhooks.
type PaymentHandler struct {
	Payments payment.Service
	Logger   *zap.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments payment.Service, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Logger: logger}
}

// GatewayWebhook handles POST /webhook/gateway. Redeliveries are expected
// and idempotent; the gateway only needs a 2xx to stop retrying.
func (h *PaymentHandler) GatewayWebhook(c *gin.Context) {
	var input struct {
		TxRef  string         `json:"tx_ref"`
		Status string         `json:"status"`
		Raw    map[string]any `json:"data,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload", "details": err.Error()})
		return
	}
	if input.TxRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing tx_ref"})
		return
	}

	if err := h.Payments.ApplyGatewayCallback(c.Request.Context(), input.TxRef, input.Status, input.Raw); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
