package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	bookingRepo "tutorhive/database/repository/booking"
	"tutorhive/models"
)

// RescheduleRequest moves a booking (or its whole cohort) to a new slot.
type RescheduleRequest struct {
	NewDate      string `json:"newDate"`
	NewStartTime string `json:"newStartTime"`
	Note         string `json:"note,omitempty"`
}

// RescheduleBooking moves a pending or confirmed booking to a new future
// slot. Group bookings move as a cohort: every member is re-validated
// against the new slot and the whole batch aborts if any member cannot move.
func (se *DefaultSchedulingEngine) RescheduleBooking(ctx context.Context, bookingID string, req RescheduleRequest) (*models.Booking, error) {
	booking, err := se.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
		return nil, &ValidationError{Field: "bookingId", Message: fmt.Sprintf("cannot reschedule a %s booking", booking.Status)}
	}

	newStartMin, err := ParseClock(req.NewStartTime)
	if err != nil {
		return nil, err
	}
	start, err := SessionStart(req.NewDate, newStartMin, time.UTC)
	if err != nil {
		return nil, err
	}
	if start.Before(se.now().UTC()) {
		return nil, &ValidationError{Field: "newDate", Message: "new slot is in the past"}
	}

	unlock := se.locks.lock(booking.TutorID)
	defer unlock()

	// The cohort (or just this booking) moves as one unit; its own
	// occupancy is excluded from the conflict check.
	members := []models.Booking{*booking}
	if booking.IsGroup() {
		members, err = se.Bookings.ListByGroup(ctx, booking.Session.Group.GroupID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, bookingRepo.ErrNotFound
		}
	}
	memberIDs := make([]string, len(members))
	for i := range members {
		memberIDs[i] = members[i].ID
	}

	decision, err := se.checker().Check(ctx, ConflictQuery{
		TutorID:           booking.TutorID,
		Date:              req.NewDate,
		StartMin:          newStartMin,
		DurationMins:      booking.DurationMins,
		Subject:           booking.Subject,
		Kind:              booking.Session.Kind,
		ExcludeBookingIDs: memberIDs,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &ConflictError{Reason: decision.Reason, Message: decision.Message}
	}
	// Rescheduling never merges into another cohort; the destination slot
	// must be genuinely free.
	if decision.ExistingGroupID != "" {
		return nil, &ConflictError{Reason: ReasonSlotTaken, Message: msgOtherCohort}
	}

	oldKey := bookingRepo.ClaimKey(booking.TutorID, booking.Date, booking.StartMin)
	oldClaim, err := se.Bookings.GetClaim(ctx, oldKey)
	if err != nil {
		return nil, err
	}
	newClaim := *oldClaim
	newClaim.Key = bookingRepo.ClaimKey(booking.TutorID, req.NewDate, newStartMin)
	newClaim.Date = req.NewDate
	newClaim.StartMin = newStartMin
	newClaim.CreatedAt = se.now()

	if err := se.Bookings.MoveClaim(ctx, oldKey, &newClaim, memberIDs, req.NewDate, newStartMin, req.Note); err != nil {
		if errors.Is(err, bookingRepo.ErrClaimExists) {
			se.Logger.Warn("lost slot race during reschedule",
				zap.String("slotKey", newClaim.Key), zap.String("bookingID", bookingID))
			return nil, &RaceLossError{SlotKey: newClaim.Key}
		}
		return nil, err
	}

	for i := range members {
		m := &members[i]
		se.Notifier.Notify(ctx, m.StudentID, "booking_rescheduled",
			fmt.Sprintf("Your %s session moved from %s %s to %s %s", m.Subject,
				m.Date, FormatClock(m.StartMin), req.NewDate, FormatClock(newStartMin)),
			map[string]any{"bookingId": m.ID})
	}

	return se.Bookings.GetByID(ctx, bookingID)
}
