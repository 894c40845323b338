package paymentRepo

import (
	"context"
	"errors"

	"tutorhive/models"
)

var ErrNotFound = errors.New("payment not found")

// PaymentRepository is the storage contract for payment records. Payments
// are append-then-settle: they are created pending and move to a terminal
// status at most once.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error)

	// Settle moves a pending payment to the given terminal status. The
	// update filter pins status=pending, so a webhook replay matches
	// nothing and is reported as already settled.
	Settle(ctx context.Context, txRef string, status models.PaymentStatus, raw map[string]any) (already bool, err error)
}
