package scheduling

import (
	"context"
	"time"

	"tutorhive/models"
)

// PaymentLinkage is the slice of the payment collaborator the scheduling
// engine drives: intent creation at booking time, checkout initiation, and
// refunds during dispute resolution.
type PaymentLinkage interface {
	RecordIntent(ctx context.Context, bookingID string, amount float64, txRef string) error
	InitCheckout(ctx context.Context, amount float64, txRef string, payer *models.User) (string, error)
	Refund(ctx context.Context, txRef string, bank models.BankDetails) error
}

// Notifier delivers fire-and-forget notifications. Implementations log
// failures; booking operations never block on delivery.
type Notifier interface {
	Notify(ctx context.Context, userID, eventType, message string, data map[string]any)
}

// ReminderScheduler queues a session reminder for later delivery.
type ReminderScheduler interface {
	ScheduleSessionReminder(ctx context.Context, bookingID string, sessionStart time.Time) error
}

// Engine is the public surface of the booking and scheduling core.
type Engine interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error)
	CreateRecurringBookings(ctx context.Context, req RecurringRequest) (*RecurringResult, error)
	RetryCheckout(ctx context.Context, bookingID string) (*CreateBookingResult, error)
	RescheduleBooking(ctx context.Context, bookingID string, req RescheduleRequest) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	FileDispute(ctx context.Context, bookingID string, req DisputeRequest) (*models.Booking, error)
	ResolveDispute(ctx context.Context, bookingID, outcome string) (*models.Booking, error)

	GetWeeklyAvailability(ctx context.Context, tutorID string) (models.WeeklyAvailability, error)
	SetWeeklyAvailability(ctx context.Context, tutorID string, weekly models.WeeklyAvailability) error

	ListStudentBookings(ctx context.Context, studentID string) ([]models.Booking, error)
	ListTutorBookings(ctx context.Context, tutorID, date string) ([]models.Booking, error)
}
