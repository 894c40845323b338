package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	bookingRepo "tutorhive/database/repository/booking"
	tutorRepo "tutorhive/database/repository/tutor"
	userRepo "tutorhive/database/repository/user"
	"tutorhive/models"
)

// DefaultGroupSize caps new cohorts when the request does not set one.
const DefaultGroupSize = 5

// DefaultSchedulingEngine is the production implementation of Engine.
type DefaultSchedulingEngine struct {
	Bookings bookingRepo.BookingRepository
	Tutors   tutorRepo.TutorRepository
	Users    userRepo.UserRepository
	Payments PaymentLinkage
	Notifier Notifier
	Logger   *zap.Logger

	// Now is the clock; tests pin it.
	Now func() time.Time

	locks tutorLocks
}

func (se *DefaultSchedulingEngine) now() time.Time {
	if se.Now != nil {
		return se.Now()
	}
	return time.Now()
}

func (se *DefaultSchedulingEngine) checker() *ConflictChecker {
	return &ConflictChecker{Bookings: se.Bookings, Tutors: se.Tutors, Logger: se.Logger}
}

// CreateBookingRequest is the caller-facing shape of a single-session
// booking request.
type CreateBookingRequest struct {
	TutorID      string             `json:"tutorId"`
	StudentID    string             `json:"studentId"`
	Date         string             `json:"date"`
	StartTime    string             `json:"startTime"` // "HH:MM"
	DurationMins int                `json:"durationMins,omitempty"`
	Subject      string             `json:"subject"`
	Kind         models.SessionKind `json:"sessionType"`
	MaxGroupSize int                `json:"maxGroupSize,omitempty"`
	Price        float64            `json:"price,omitempty"`
	Message      string             `json:"message,omitempty"`
}

// CreateBookingResult carries the persisted booking and, when checkout
// initiation succeeded, the redirect URL for payment.
type CreateBookingResult struct {
	Booking     *models.Booking `json:"booking"`
	CheckoutURL string          `json:"checkoutUrl,omitempty"`
}

func (se *DefaultSchedulingEngine) validateCreate(req *CreateBookingRequest) (startMin int, err error) {
	if req.TutorID == "" {
		return 0, &ValidationError{Field: "tutorId", Message: "required"}
	}
	if req.StudentID == "" {
		return 0, &ValidationError{Field: "studentId", Message: "required"}
	}
	if req.Subject == "" {
		return 0, &ValidationError{Field: "subject", Message: "required"}
	}
	switch req.Kind {
	case models.SessionIndividual, models.SessionGroup:
	default:
		return 0, &ValidationError{Field: "sessionType", Message: fmt.Sprintf("must be %q or %q", models.SessionIndividual, models.SessionGroup)}
	}
	if req.DurationMins < 0 {
		return 0, &ValidationError{Field: "durationMins", Message: "must be positive"}
	}
	if req.DurationMins == 0 {
		req.DurationMins = DefaultDurationMins
	}
	if req.Kind == models.SessionGroup && req.MaxGroupSize == 0 {
		req.MaxGroupSize = DefaultGroupSize
	}
	if req.MaxGroupSize < 0 || (req.Kind == models.SessionGroup && req.MaxGroupSize < 1) {
		return 0, &ValidationError{Field: "maxGroupSize", Message: "must be at least 1"}
	}

	startMin, err = ParseClock(req.StartTime)
	if err != nil {
		return 0, err
	}
	start, err := SessionStart(req.Date, startMin, time.UTC)
	if err != nil {
		return 0, err
	}
	if start.Before(se.now().UTC()) {
		return 0, &ValidationError{Field: "date", Message: "session start is in the past"}
	}
	return startMin, nil
}

// CreateBooking validates the request, runs the conflict check under the
// tutor's lock, persists the booking with its slot claim, and records the
// payment intent. A checkout failure is returned alongside the booking: the
// booking stays pending and the caller may retry checkout.
func (se *DefaultSchedulingEngine) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	startMin, err := se.validateCreate(&req)
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

	unlock := se.locks.lock(req.TutorID)
	defer unlock()

	decision, err := se.checker().Check(ctx, ConflictQuery{
		TutorID:      req.TutorID,
		Date:         req.Date,
		StartMin:     startMin,
		DurationMins: req.DurationMins,
		Subject:      req.Subject,
		Kind:         req.Kind,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &ConflictError{Reason: decision.Reason, Message: decision.Message}
	}

	now := se.now()
	booking := &models.Booking{
		ID:           uuid.New().String(),
		TutorID:      req.TutorID,
		StudentID:    req.StudentID,
		Date:         req.Date,
		StartMin:     startMin,
		DurationMins: req.DurationMins,
		Subject:      req.Subject,
		Price:        price,
		TxRef:        uuid.New().String(),
		Status:       models.BookingPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	key := bookingRepo.ClaimKey(req.TutorID, req.Date, startMin)
	if decision.ExistingGroupID != "" {
		if _, err := se.Bookings.AttachToCohort(ctx, booking, key); err != nil {
			return nil, se.mapClaimError(ctx, err, key, req)
		}
	} else {
		claim := &bookingRepo.SlotClaim{
			Key:          key,
			TutorID:      req.TutorID,
			Date:         req.Date,
			StartMin:     startMin,
			DurationMins: req.DurationMins,
			Kind:         req.Kind,
			Subject:      req.Subject,
			CreatedAt:    now,
		}
		if req.Kind == models.SessionGroup {
			groupID := uuid.New().String()
			claim.GroupID = groupID
			claim.MaxSize = req.MaxGroupSize
			claim.Size = 1
			booking.Session = models.Session{
				Kind:  models.SessionGroup,
				Group: &models.GroupSession{GroupID: groupID, MaxSize: req.MaxGroupSize, Size: 1},
			}
		} else {
			booking.Session = models.Session{Kind: models.SessionIndividual}
		}
		if err := se.Bookings.CreateWithClaim(ctx, booking, claim); err != nil {
			return nil, se.mapClaimError(ctx, err, key, req)
		}
	}

	if err := se.Payments.RecordIntent(ctx, booking.ID, booking.Price, booking.TxRef); err != nil {
		return nil, fmt.Errorf("failed to record payment intent for booking %s: %w", booking.ID, err)
	}

	se.Notifier.Notify(ctx, req.TutorID, "booking_requested",
		fmt.Sprintf("%s requested a %s session on %s at %s", student.Name, req.Subject, req.Date, FormatClock(startMin)),
		map[string]any{"bookingId": booking.ID})

	checkoutURL, err := se.Payments.InitCheckout(ctx, booking.Price, booking.TxRef, student)
	if err != nil {
		se.Logger.Warn("checkout init failed, booking stays pending",
			zap.String("bookingID", booking.ID), zap.Error(err))
		return &CreateBookingResult{Booking: booking}, err
	}

	return &CreateBookingResult{Booking: booking, CheckoutURL: checkoutURL}, nil
}

// RetryCheckout re-initiates checkout for a booking whose original checkout
// attempt failed. The amount covers every non-cancelled booking sharing the
// payment reference, so one call retries a whole recurring batch.
func (se *DefaultSchedulingEngine) RetryCheckout(ctx context.Context, bookingID string) (*CreateBookingResult, error) {
	booking, err := se.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsPaid {
		return nil, &ValidationError{Field: "bookingId", Message: "booking is already paid"}
	}
	if booking.Status == models.BookingCancelled {
		return nil, &ValidationError{Field: "bookingId", Message: "cancelled booking cannot be paid"}
	}
	student, err := se.Users.GetByID(ctx, booking.StudentID)
	if err != nil {
		return nil, err
	}

	batch, err := se.Bookings.ListByTxRef(ctx, booking.TxRef)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for i := range batch {
		if batch[i].Status != models.BookingCancelled {
			total = total.Add(decimal.NewFromFloat(batch[i].Price))
		}
	}
	amount, _ := total.Float64()

	checkoutURL, err := se.Payments.InitCheckout(ctx, amount, booking.TxRef, student)
	if err != nil {
		se.Logger.Warn("checkout retry failed",
			zap.String("bookingID", booking.ID), zap.String("txRef", booking.TxRef), zap.Error(err))
		return nil, err
	}
	return &CreateBookingResult{Booking: booking, CheckoutURL: checkoutURL}, nil
}

// mapClaimError turns storage guard failures into the public taxonomy. A
// guarded cohort update that matched nothing is re-read to decide between
// "group full" and a lost race.
func (se *DefaultSchedulingEngine) mapClaimError(ctx context.Context, err error, key string, req CreateBookingRequest) error {
	switch {
	case errors.Is(err, bookingRepo.ErrClaimExists):
		se.Logger.Warn("lost slot race",
			zap.String("slotKey", key), zap.String("tutorID", req.TutorID))
		return &RaceLossError{SlotKey: key}
	case errors.Is(err, bookingRepo.ErrClaimGuard):
		claim, getErr := se.Bookings.GetClaim(ctx, key)
		if getErr == nil && claim.Kind == models.SessionGroup && claim.Subject == req.Subject && claim.Size >= claim.MaxSize {
			return &ConflictError{Reason: ReasonGroupFull, Message: msgGroupFull, GroupID: claim.GroupID}
		}
		se.Logger.Warn("cohort attach guard rejected",
			zap.String("slotKey", key), zap.String("tutorID", req.TutorID))
		return &RaceLossError{SlotKey: key}
	default:
		return err
	}
}

// CompleteBooking marks that the session has occurred. Idempotent: replays
// change nothing and return the booking as-is.
func (se *DefaultSchedulingEngine) CompleteBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := se.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingCancelled {
		return nil, &ValidationError{Field: "bookingId", Message: "cancelled booking cannot be completed"}
	}

	at := se.now()
	already, err := se.Bookings.MarkCompleted(ctx, bookingID, at)
	if err != nil {
		return nil, err
	}
	if !already {
		booking.Completed = true
		booking.CompletedAt = &at
		se.Notifier.Notify(ctx, booking.StudentID, "session_completed",
			fmt.Sprintf("Your %s session on %s is complete", booking.Subject, booking.Date),
			map[string]any{"bookingId": booking.ID})
	}
	return booking, nil
}

// CancelBooking cancels a pending or confirmed booking and releases its hold
// on the slot.
func (se *DefaultSchedulingEngine) CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := se.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingCancelled {
		return nil, &ValidationError{Field: "bookingId", Message: "booking already cancelled"}
	}

	unlock := se.locks.lock(booking.TutorID)
	defer unlock()

	// Status-pinned update: a gateway callback settling this booking
	// concurrently flips it to confirmed, and cancellation must not undo
	// the paid flag.
	already, err := se.Bookings.MarkCancelled(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, &ValidationError{Field: "bookingId", Message: "booking already cancelled"}
	}
	booking.Status = models.BookingCancelled
	if err := se.Bookings.ReleaseSlot(ctx, booking); err != nil {
		se.Logger.Error("failed to release slot after cancellation",
			zap.String("bookingID", booking.ID), zap.Error(err))
	}

	se.Notifier.Notify(ctx, booking.TutorID, "booking_cancelled",
		fmt.Sprintf("Session on %s at %s was cancelled", booking.Date, FormatClock(booking.StartMin)),
		map[string]any{"bookingId": booking.ID})
	se.Notifier.Notify(ctx, booking.StudentID, "booking_cancelled",
		fmt.Sprintf("Your session on %s at %s was cancelled", booking.Date, FormatClock(booking.StartMin)),
		map[string]any{"bookingId": booking.ID})

	return booking, nil
}

// GetWeeklyAvailability returns a tutor's weekly windows.
func (se *DefaultSchedulingEngine) GetWeeklyAvailability(ctx context.Context, tutorID string) (models.WeeklyAvailability, error) {
	tutor, err := se.Tutors.GetByID(ctx, tutorID)
	if err != nil {
		return models.WeeklyAvailability{}, err
	}
	return tutor.Weekly, nil
}

// SetWeeklyAvailability validates and stores a tutor's weekly windows. A
// window with FromMin > ToMin wraps past midnight and is accepted as-is.
func (se *DefaultSchedulingEngine) SetWeeklyAvailability(ctx context.Context, tutorID string, weekly models.WeeklyAvailability) error {
	for day, win := range weekly {
		if !win.Available {
			continue
		}
		if win.FromMin < 0 || win.FromMin >= minutesPerDay || win.ToMin < 0 || win.ToMin >= minutesPerDay {
			return &ValidationError{Field: "weekly", Message: fmt.Sprintf("day %d window out of range", day)}
		}
		if win.FromMin == win.ToMin {
			return &ValidationError{Field: "weekly", Message: fmt.Sprintf("day %d window is empty", day)}
		}
	}
	return se.Tutors.SetWeeklyAvailability(ctx, tutorID, weekly)
}

func (se *DefaultSchedulingEngine) ListStudentBookings(ctx context.Context, studentID string) ([]models.Booking, error) {
	return se.Bookings.ListByStudent(ctx, studentID)
}

func (se *DefaultSchedulingEngine) ListTutorBookings(ctx context.Context, tutorID, date string) ([]models.Booking, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	return se.Bookings.ListByTutorDate(ctx, tutorID, date)
}

func sessionPrice(hourlyRate float64, durationMins int) float64 {
	return hourlyRate * float64(durationMins) / 60
}
