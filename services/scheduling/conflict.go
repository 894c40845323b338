package scheduling

import (
	"context"

	bookingRepo "tutorhive/database/repository/booking"
	tutorRepo "tutorhive/database/repository/tutor"
	"tutorhive/models"

	"go.uber.org/zap"
)

// Human-readable reasons surfaced verbatim to callers. The machine contract
// is the ConflictReason category, not the prose.
const (
	msgSlotTaken        = "already booked for this slot"
	msgGroupFull        = "group session is full"
	msgIndividualOnSlot = "tutor already booked for an individual session"
	msgGroupOnSlot      = "tutor already hosting a group session at this time"
	msgOtherCohort      = "tutor already hosting a different group at this time"
	msgNotAvailable     = "tutor not available at this time"
)

// ConflictQuery describes the slot a caller wants to take.
type ConflictQuery struct {
	TutorID      string
	Date         string
	StartMin     int
	DurationMins int
	Subject      string
	Kind         models.SessionKind

	// ExcludeBookingIDs removes the caller's own occupancy from the check,
	// used when rescheduling a booking or a whole cohort.
	ExcludeBookingIDs []string
}

// ConflictDecision is the outcome of a conflict check. When a group request
// may join an existing cohort, ExistingGroupID names it.
type ConflictDecision struct {
	Allowed         bool
	Reason          ConflictReason
	Message         string
	ExistingGroupID string
}

// ConflictChecker decides whether a new booking is legal against a tutor's
// existing bookings. It is advisory: the storage-level claim guard is the
// final arbiter under concurrency.
type ConflictChecker struct {
	Bookings bookingRepo.BookingRepository
	Tutors   tutorRepo.TutorRepository
	Logger   *zap.Logger
}

func reject(reason ConflictReason, msg string) ConflictDecision {
	return ConflictDecision{Allowed: false, Reason: reason, Message: msg}
}

// Check runs the full conflict algorithm for one requested slot.
func (cc *ConflictChecker) Check(ctx context.Context, q ConflictQuery) (ConflictDecision, error) {
	if q.DurationMins <= 0 {
		q.DurationMins = DefaultDurationMins
	}

	tutor, err := cc.Tutors.GetByID(ctx, q.TutorID)
	if err != nil {
		return ConflictDecision{}, err
	}
	ok, err := WithinAvailability(tutor.Weekly, q.Date, q.StartMin, q.DurationMins)
	if err != nil {
		return ConflictDecision{}, err
	}
	if !ok {
		return reject(ReasonNotAvailable, msgNotAvailable), nil
	}

	reqStart, err := absStartMin(q.Date, q.StartMin)
	if err != nil {
		return ConflictDecision{}, err
	}

	dates, err := adjacentDates(q.Date)
	if err != nil {
		return ConflictDecision{}, err
	}
	existing, err := cc.Bookings.ListActiveByTutorDates(ctx, q.TutorID, dates)
	if err != nil {
		return ConflictDecision{}, err
	}

	excluded := make(map[string]bool, len(q.ExcludeBookingIDs))
	for _, id := range q.ExcludeBookingIDs {
		excluded[id] = true
	}

	for i := range existing {
		b := &existing[i]
		if excluded[b.ID] {
			continue
		}
		bStart, err := absStartMin(b.Date, b.StartMin)
		if err != nil {
			return ConflictDecision{}, err
		}
		dur := b.DurationMins
		if dur <= 0 {
			dur = DefaultDurationMins
		}
		if !intervalsOverlap(reqStart, q.DurationMins, bStart, dur) {
			continue
		}

		switch q.Kind {
		case models.SessionIndividual:
			if b.IsGroup() {
				return reject(ReasonCrossType, msgGroupOnSlot), nil
			}
			return reject(ReasonSlotTaken, msgSlotTaken), nil

		case models.SessionGroup:
			if !b.IsGroup() {
				return reject(ReasonCrossType, msgIndividualOnSlot), nil
			}
			// A cohort is joinable only at the exact same slot and subject;
			// one slot holds at most one cohort.
			if b.Date == q.Date && b.StartMin == q.StartMin && b.Subject == q.Subject {
				g := b.Session.Group
				if g.Size >= g.MaxSize {
					return reject(ReasonGroupFull, msgGroupFull), nil
				}
				cc.Logger.Debug("conflict check: attaching to cohort",
					zap.String("tutorID", q.TutorID),
					zap.String("groupID", g.GroupID),
					zap.Int("size", g.Size),
				)
				return ConflictDecision{Allowed: true, ExistingGroupID: g.GroupID}, nil
			}
			return reject(ReasonSlotTaken, msgOtherCohort), nil
		}
	}

	return ConflictDecision{Allowed: true}, nil
}
