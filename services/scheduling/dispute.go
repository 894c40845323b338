package scheduling

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tutorhive/models"
)

// DisputeRequest files a complaint against a booking. Bank details are the
// payout destination should the resolution be a refund.
type DisputeRequest struct {
	Reason string             `json:"reason"`
	Bank   models.BankDetails `json:"bank"`
}

// FileDispute flags a booking. Legal exactly once per booking: a second
// filing fails instead of silently overwriting the first reason.
func (se *DefaultSchedulingEngine) FileDispute(ctx context.Context, bookingID string, req DisputeRequest) (*models.Booking, error) {
	if req.Reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "required"}
	}

	booking, err := se.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsPaid {
		return nil, &ValidationError{Field: "bookingId", Message: "only paid bookings can be disputed"}
	}
	if booking.Dispute.Filed {
		return nil, &ValidationError{Field: "bookingId", Message: "dispute already filed for this booking"}
	}

	now := se.now()
	booking.Dispute = models.Dispute{
		Filed:   true,
		Reason:  req.Reason,
		FiledAt: &now,
		Bank:    req.Bank,
	}
	already, err := se.Bookings.SetDispute(ctx, bookingID, booking.Dispute)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, &ValidationError{Field: "bookingId", Message: "dispute already filed for this booking"}
	}

	se.Notifier.Notify(ctx, booking.TutorID, "dispute_filed",
		fmt.Sprintf("A dispute was filed for the %s session on %s", booking.Subject, booking.Date),
		map[string]any{"bookingId": booking.ID})

	return booking, nil
}

// ResolveDispute settles an open dispute. A refund outcome drives the
// gateway payout first and commits the resolution only when the payout
// succeeds: a failed payout leaves the dispute unresolved so a manual path
// can be offered.
func (se *DefaultSchedulingEngine) ResolveDispute(ctx context.Context, bookingID, outcome string) (*models.Booking, error) {
	if outcome != models.DisputeRefunded && outcome != models.DisputeRejected {
		return nil, &ValidationError{Field: "outcome", Message: fmt.Sprintf("must be %q or %q", models.DisputeRefunded, models.DisputeRejected)}
	}

	booking, err := se.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Dispute.Filed || booking.Dispute.Resolved {
		return nil, &ValidationError{Field: "bookingId", Message: "no open dispute for this booking"}
	}

	refunded := outcome == models.DisputeRefunded
	if refunded {
		if err := se.Payments.Refund(ctx, booking.TxRef, booking.Dispute.Bank); err != nil {
			se.Logger.Warn("refund failed, dispute stays unresolved",
				zap.String("bookingID", booking.ID), zap.String("txRef", booking.TxRef), zap.Error(err))
			return nil, err
		}
	}

	now := se.now()
	booking.Dispute.Resolved = true
	booking.Dispute.Outcome = outcome
	booking.Dispute.ResolvedAt = &now

	if refunded {
		booking.Status = models.BookingCancelled
		booking.IsPaid = false
	}
	already, err := se.Bookings.ResolveDispute(ctx, bookingID, booking.Dispute, refunded)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, &ValidationError{Field: "bookingId", Message: "no open dispute for this booking"}
	}

	if refunded && !booking.Completed {
		unlock := se.locks.lock(booking.TutorID)
		if err := se.Bookings.ReleaseSlot(ctx, booking); err != nil {
			se.Logger.Error("failed to release slot after refund",
				zap.String("bookingID", booking.ID), zap.Error(err))
		}
		unlock()
	}

	se.Notifier.Notify(ctx, booking.StudentID, "dispute_resolved",
		fmt.Sprintf("Your dispute for the %s session on %s was %s", booking.Subject, booking.Date, outcome),
		map[string]any{"bookingId": booking.ID, "outcome": outcome})

	return booking, nil
}
