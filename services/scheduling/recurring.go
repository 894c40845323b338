package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bookingRepo "tutorhive/database/repository/booking"
	"tutorhive/models"
)

// RecurringRequest asks for one individual session per week over a number of
// calendar months.
type RecurringRequest struct {
	TutorID        string       `json:"tutorId"`
	StudentID      string       `json:"studentId"`
	StartDate      string       `json:"startDate"`
	Weekday        time.Weekday `json:"weekday"`
	StartTime      string       `json:"startTime"`
	DurationMonths int          `json:"durationMonths"`
	DurationMins   int          `json:"durationMins,omitempty"`
	Subject        string       `json:"subject"`
	Price          float64      `json:"price,omitempty"` // per session
}

// RecurringResult is the persisted batch plus the total the caller charges.
type RecurringResult struct {
	Bookings     []models.Booking `json:"bookings"`
	RecurrenceID string           `json:"recurrenceId"`
	TxRef        string           `json:"txRef"`
	TotalPrice   float64          `json:"totalPrice"`
	CheckoutURL  string           `json:"checkoutUrl,omitempty"`
}

// expandOccurrences lists every occurrence date: the first `weekday` on or
// after startDate, then weekly until startDate plus durationMonths
// (calendar-month arithmetic, not fixed 30-day blocks).
func expandOccurrences(startDate string, weekday time.Weekday, durationMonths int) ([]string, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, durationMonths, 0)

	first := start.AddDate(0, 0, (int(weekday)-int(start.Weekday())+7)%7)
	var dates []string
	for d := first; d.Before(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates, nil
}

// CreateRecurringBookings expands a weekly-recurrence request into dated
// bookings. All-or-nothing: if any occurrence conflicts, nothing is
// persisted and the error names the conflicting date.
func (se *DefaultSchedulingEngine) CreateRecurringBookings(ctx context.Context, req RecurringRequest) (*RecurringResult, error) {
	if req.TutorID == "" {
		return nil, &ValidationError{Field: "tutorId", Message: "required"}
	}
	if req.StudentID == "" {
		return nil, &ValidationError{Field: "studentId", Message: "required"}
	}
	if req.Subject == "" {
		return nil, &ValidationError{Field: "subject", Message: "required"}
	}
	if req.Weekday < time.Sunday || req.Weekday > time.Saturday {
		return nil, &ValidationError{Field: "weekday", Message: "out of range"}
	}
	if req.DurationMonths <= 0 {
		return nil, &ValidationError{Field: "durationMonths", Message: "must be positive"}
	}
	if req.DurationMins == 0 {
		req.DurationMins = DefaultDurationMins
	}
	startMin, err := ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}

	student, err := se.Users.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, &ValidationError{Field: "studentId", Message: "unknown student"}
	}
	tutor, err := se.Tutors.GetByID(ctx, req.TutorID)
	if err != nil {
		return nil, &ValidationError{Field: "tutorId", Message: "unknown tutor"}
	}
	price := req.Price
	if price == 0 {
		price = sessionPrice(tutor.HourlyRate, req.DurationMins)
	}

	dates, err := expandOccurrences(req.StartDate, req.Weekday, req.DurationMonths)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, &ValidationError{Field: "durationMonths", Message: "recurrence yields no occurrences"}
	}

	unlock := se.locks.lock(req.TutorID)
	defer unlock()

	// Validate phase: every occurrence must be conflict-free before anything
	// is written.
	for _, date := range dates {
		decision, err := se.checker().Check(ctx, ConflictQuery{
			TutorID:      req.TutorID,
			Date:         date,
			StartMin:     startMin,
			DurationMins: req.DurationMins,
			Subject:      req.Subject,
			Kind:         models.SessionIndividual,
		})
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, &ConflictError{Reason: decision.Reason, Message: decision.Message, Date: date}
		}
	}

	// Commit phase. A claim race here rolls back the partial batch.
	now := se.now()
	recurrenceID := uuid.New().String()
	txRef := uuid.New().String()
	created := make([]models.Booking, 0, len(dates))
	for _, date := range dates {
		booking := models.Booking{
			ID:           uuid.New().String(),
			TutorID:      req.TutorID,
			StudentID:    req.StudentID,
			Date:         date,
			StartMin:     startMin,
			DurationMins: req.DurationMins,
			Subject:      req.Subject,
			Price:        price,
			TxRef:        txRef,
			Session:      models.Session{Kind: models.SessionIndividual},
			Status:       models.BookingPending,
			RecurrenceID: recurrenceID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		claim := &bookingRepo.SlotClaim{
			Key:          bookingRepo.ClaimKey(req.TutorID, date, startMin),
			TutorID:      req.TutorID,
			Date:         date,
			StartMin:     startMin,
			DurationMins: req.DurationMins,
			Kind:         models.SessionIndividual,
			Subject:      req.Subject,
			CreatedAt:    now,
		}
		if err := se.Bookings.CreateWithClaim(ctx, &booking, claim); err != nil {
			se.rollbackRecurring(ctx, created)
			if err == bookingRepo.ErrClaimExists {
				se.Logger.Warn("lost slot race during recurring commit",
					zap.String("slotKey", claim.Key), zap.String("recurrenceID", recurrenceID))
				return nil, &RaceLossError{SlotKey: claim.Key}
			}
			return nil, err
		}
		created = append(created, booking)
	}

	total := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(len(created))))
	totalPrice, _ := total.Float64()

	if err := se.Payments.RecordIntent(ctx, created[0].ID, totalPrice, txRef); err != nil {
		return nil, fmt.Errorf("failed to record payment intent for recurrence %s: %w", recurrenceID, err)
	}

	se.Notifier.Notify(ctx, req.TutorID, "booking_requested",
		fmt.Sprintf("%s requested %d weekly %s sessions starting %s", student.Name, len(created), req.Subject, created[0].Date),
		map[string]any{"recurrenceId": recurrenceID})

	result := &RecurringResult{
		Bookings:     created,
		RecurrenceID: recurrenceID,
		TxRef:        txRef,
		TotalPrice:   totalPrice,
	}
	checkoutURL, err := se.Payments.InitCheckout(ctx, totalPrice, txRef, student)
	if err != nil {
		se.Logger.Warn("checkout init failed, recurrence stays pending",
			zap.String("recurrenceID", recurrenceID), zap.Error(err))
		return result, err
	}
	result.CheckoutURL = checkoutURL
	return result, nil
}

// rollbackRecurring best-effort undoes partially committed occurrences after
// a mid-batch claim race.
func (se *DefaultSchedulingEngine) rollbackRecurring(ctx context.Context, created []models.Booking) {
	for i := range created {
		b := &created[i]
		if _, err := se.Bookings.MarkCancelled(ctx, b.ID); err != nil {
			se.Logger.Error("recurring rollback: cancel failed",
				zap.String("bookingID", b.ID), zap.Error(err))
			continue
		}
		b.Status = models.BookingCancelled
		if err := se.Bookings.ReleaseSlot(ctx, b); err != nil {
			se.Logger.Error("recurring rollback: release failed",
				zap.String("bookingID", b.ID), zap.Error(err))
		}
	}
}
