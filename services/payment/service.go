package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "tutorhive/database/repository/booking"
	paymentRepo "tutorhive/database/repository/payment"
	"tutorhive/models"
	"tutorhive/services/payment/gateway"
	"tutorhive/services/scheduling"
)

// Service is the payment linkage between bookings and the external gateway.
// It also satisfies scheduling.PaymentLinkage.
type Service interface {
	scheduling.PaymentLinkage
	ApplyGatewayCallback(ctx context.Context, txRef, status string, raw map[string]any) error
}

// DefaultPaymentService is the production implementation.
type DefaultPaymentService struct {
	Payments  paymentRepo.PaymentRepository
	Bookings  bookingRepo.BookingRepository
	Gateway   gateway.Client
	Notifier  scheduling.Notifier
	Reminders scheduling.ReminderScheduler
	Logger    *zap.Logger

	Currency    string
	CallbackURL string
	ReturnURL   string
}

// RecordIntent creates the pending payment record for a booking at booking
// time. Payments are never deleted; failed attempts stay for audit.
func (s *DefaultPaymentService) RecordIntent(ctx context.Context, bookingID string, amount float64, txRef string) error {
	if amount <= 0 {
		return &scheduling.ValidationError{Field: "amount", Message: "must be positive"}
	}
	now := time.Now()
	p := &models.Payment{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		TxRef:     txRef,
		Amount:    amount,
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Payments.Create(ctx, p); err != nil {
		return fmt.Errorf("record payment intent: %w", err)
	}
	return nil
}

// InitCheckout asks the gateway for a hosted checkout URL. Failures are
// transient from the caller's perspective: the booking stays pending and the
// checkout can be retried.
func (s *DefaultPaymentService) InitCheckout(ctx context.Context, amount float64, txRef string, payer *models.User) (string, error) {
	url, err := s.Gateway.InitCheckout(ctx, gateway.CheckoutRequest{
		Amount:      amount,
		Currency:    s.Currency,
		TxRef:       txRef,
		PayerName:   payer.Name,
		PayerEmail:  payer.Email,
		CallbackURL: s.CallbackURL,
		ReturnURL:   s.ReturnURL,
	})
	if err != nil {
		var te *gateway.TransientError
		if errors.As(err, &te) {
			return "", &scheduling.GatewayTransientError{Op: "checkout", Err: err}
		}
		return "", err
	}
	return url, nil
}

// ApplyGatewayCallback processes a gateway webhook delivery. The gateway is
// untrusted and redelivers: replays of a terminal status already applied are
// no-ops, and conflicting terminal replays are rejected without touching
// state.
func (s *DefaultPaymentService) ApplyGatewayCallback(ctx context.Context, txRef, status string, raw map[string]any) error {
	var target models.PaymentStatus
	switch models.PaymentStatus(status) {
	case models.PaymentCompleted:
		target = models.PaymentCompleted
	case models.PaymentFailed:
		target = models.PaymentFailed
	default:
		return &scheduling.ValidationError{Field: "status", Message: fmt.Sprintf("unknown gateway status %q", status)}
	}

	p, err := s.Payments.GetByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrNotFound) {
			return &scheduling.ValidationError{Field: "tx_ref", Message: "unknown transaction reference"}
		}
		return err
	}
	if p.Status == target {
		s.Logger.Info("webhook replay ignored",
			zap.String("txRef", txRef), zap.String("status", status))
		return nil
	}
	if p.Status != models.PaymentPending {
		return &scheduling.ValidationError{Field: "status", Message: fmt.Sprintf("payment already settled as %s", p.Status)}
	}

	already, err := s.Payments.Settle(ctx, txRef, target, raw)
	if err != nil {
		return err
	}
	if already {
		// A concurrent delivery settled it first.
		return nil
	}

	if target == models.PaymentFailed {
		s.Logger.Warn("payment failed, booking stays pending", zap.String("txRef", txRef))
		return nil
	}

	bookings, err := s.Bookings.ListByTxRef(ctx, txRef)
	if err != nil {
		return err
	}
	for i := range bookings {
		b := &bookings[i]
		already, err := s.Bookings.ConfirmPaid(ctx, b.ID)
		if err != nil {
			return err
		}
		if already {
			continue
		}
		s.Notifier.Notify(ctx, b.StudentID, "booking_confirmed",
			fmt.Sprintf("Your %s session on %s at %s is confirmed", b.Subject, b.Date, scheduling.FormatClock(b.StartMin)),
			map[string]any{"bookingId": b.ID})
		s.Notifier.Notify(ctx, b.TutorID, "booking_confirmed",
			fmt.Sprintf("The %s session on %s at %s is confirmed", b.Subject, b.Date, scheduling.FormatClock(b.StartMin)),
			map[string]any{"bookingId": b.ID})

		start, err := scheduling.SessionStart(b.Date, b.StartMin, time.UTC)
		if err != nil {
			s.Logger.Error("could not compute session start for reminder",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		if err := s.Reminders.ScheduleSessionReminder(ctx, b.ID, start); err != nil {
			s.Logger.Error("failed to schedule session reminder",
				zap.String("bookingID", b.ID), zap.Error(err))
		}
	}
	return nil
}

// Refund pays a settled transaction out to the given bank account. A payout
// incapability is surfaced as PayoutUnavailableError so callers can fall
// back to manual processing.
func (s *DefaultPaymentService) Refund(ctx context.Context, txRef string, bank models.BankDetails) error {
	p, err := s.Payments.GetByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrNotFound) {
			return &scheduling.ValidationError{Field: "tx_ref", Message: "unknown transaction reference"}
		}
		return err
	}
	if p.Status != models.PaymentCompleted {
		return &scheduling.ValidationError{Field: "tx_ref", Message: fmt.Sprintf("cannot refund a %s payment", p.Status)}
	}

	err = s.Gateway.Refund(ctx, gateway.RefundRequest{
		TxRef:           txRef,
		BankAccountName: bank.AccountName,
		BankAccountNo:   bank.AccountNumber,
		BankCode:        bank.BankCode,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrPayoutNotEnabled) {
			return &scheduling.PayoutUnavailableError{TxRef: txRef, Message: err.Error()}
		}
		var te *gateway.TransientError
		if errors.As(err, &te) {
			return &scheduling.GatewayTransientError{Op: "refund", Err: err}
		}
		return err
	}

	s.Logger.Info("refund completed", zap.String("txRef", txRef), zap.Float64("amount", p.Amount))
	return nil
}
