package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorhive/models"
)

// Sentinel errors surfaced by claim-guarded writes. The scheduling engine
// maps these to its public error taxonomy.
var (
	ErrNotFound    = errors.New("booking not found")
	ErrClaimExists = errors.New("slot already claimed")
	ErrClaimGuard  = errors.New("claim guard rejected update")
)

// SlotClaim is the storage-level contention guard for one tutor slot. Exactly
// one claim document may exist per (tutor, date, start) key; a group claim
// additionally carries the cohort data and its Size field is only ever
// changed by a guarded update whose filter embeds size < max_size.
type SlotClaim struct {
	Key          string             `bson:"_id"`
	TutorID      string             `bson:"tutor_id"`
	Date         string             `bson:"date"`
	StartMin     int                `bson:"start_min"`
	DurationMins int                `bson:"duration_mins"`
	Kind         models.SessionKind `bson:"kind"`
	GroupID      string             `bson:"group_id,omitempty"`
	Subject      string             `bson:"subject"`
	MaxSize      int                `bson:"max_size,omitempty"`
	Size         int                `bson:"size,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// ClaimKey builds the canonical contention key for a tutor slot.
func ClaimKey(tutorID, date string, startMin int) string {
	return fmt.Sprintf("%s|%s|%d", tutorID, date, startMin)
}

// BookingRepository is the storage contract for bookings and their slot
// claims. All multi-document writes are transactional in the Mongo
// implementation.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// ListByTxRef returns every booking tied to a payment reference; a
	// recurring batch shares one tx_ref across all its occurrences.
	ListByTxRef(ctx context.Context, txRef string) ([]models.Booking, error)
	ListActiveByTutorDates(ctx context.Context, tutorID string, dates []string) ([]models.Booking, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Booking, error)
	ListByTutorDate(ctx context.Context, tutorID, date string) ([]models.Booking, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Booking, error)
	ListByRecurrence(ctx context.Context, recurrenceID string) ([]models.Booking, error)

	GetClaim(ctx context.Context, key string) (*SlotClaim, error)

	// CreateWithClaim inserts the booking and its slot claim atomically.
	// Returns ErrClaimExists when another writer holds the slot.
	CreateWithClaim(ctx context.Context, booking *models.Booking, claim *SlotClaim) error

	// AttachToCohort increments the cohort claim size if and only if
	// size < max_size and the subject matches, inserts the booking, and
	// bumps the denormalized size on all cohort members. Returns
	// ErrClaimGuard when the guarded increment matched nothing.
	AttachToCohort(ctx context.Context, booking *models.Booking, claimKey string) (*SlotClaim, error)

	// ReleaseSlot undoes a booking's hold: deletes an individual claim, or
	// decrements a cohort claim (deleting it when the last member leaves).
	ReleaseSlot(ctx context.Context, booking *models.Booking) error

	// MoveClaim atomically deletes the old claim, inserts the new one, and
	// rewrites the schedule fields of every affected booking. Returns
	// ErrClaimExists when the destination slot is already claimed.
	MoveClaim(ctx context.Context, oldKey string, claim *SlotClaim, bookingIDs []string, newDate string, newStartMin int, note string) error

	// MarkCancelled moves a pending or confirmed booking to cancelled. The
	// update is status-pinned, so it never reverts fields a concurrent
	// settle has written; terminal bookings match nothing and report
	// already=true.
	MarkCancelled(ctx context.Context, id string) (already bool, err error)

	// SetDispute files a dispute exactly once; the filter pins the paid
	// flag and the absence of a prior filing.
	SetDispute(ctx context.Context, id string, dispute models.Dispute) (already bool, err error)

	// ResolveDispute commits a resolution to a still-open dispute. A
	// refunded resolution also cancels the booking and clears its paid
	// flag in the same update.
	ResolveDispute(ctx context.Context, id string, dispute models.Dispute, refunded bool) (already bool, err error)

	// MarkCompleted flips the completion flag exactly once; replays report
	// already=true and change nothing.
	MarkCompleted(ctx context.Context, id string, at time.Time) (already bool, err error)

	// ConfirmPaid sets is_paid and status=confirmed if the booking is still
	// pending-unpaid; replays match nothing and report already=true.
	ConfirmPaid(ctx context.Context, id string) (already bool, err error)
}
