package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhive/models"
)

func seedIndividual(env *testEnv, id, date string, startMin, dur int) {
	env.bookings.seed(models.Booking{
		ID:           id,
		TutorID:      "tutor-1",
		StudentID:    "student-1",
		Date:         date,
		StartMin:     startMin,
		DurationMins: dur,
		Subject:      "math",
		Session:      models.Session{Kind: models.SessionIndividual},
		Status:       models.BookingConfirmed,
	}, nil)
}

func seedGroup(env *testEnv, id, date string, startMin int, subject, groupID string, size, maxSize int) {
	env.bookings.seed(models.Booking{
		ID:           id,
		TutorID:      "tutor-1",
		StudentID:    "student-1",
		Date:         date,
		StartMin:     startMin,
		DurationMins: 60,
		Subject:      subject,
		Session: models.Session{
			Kind:  models.SessionGroup,
			Group: &models.GroupSession{GroupID: groupID, MaxSize: maxSize, Size: size},
		},
		Status: models.BookingConfirmed,
	}, nil)
}

func check(t *testing.T, env *testEnv, q ConflictQuery) ConflictDecision {
	t.Helper()
	d, err := env.engine.checker().Check(context.Background(), q)
	require.NoError(t, err)
	return d
}

func TestCheckFreeSlot(t *testing.T) {
	env := newTestEnv(t)
	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 600, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.True(t, d.Allowed)
	assert.Empty(t, d.ExistingGroupID)
}

func TestCheckOutsideAvailability(t *testing.T) {
	env := newTestEnv(t)
	weekly := models.WeeklyAvailability{}
	weekly[1] = models.DayWindow{Available: true, FromMin: 540, ToMin: 1020}
	env.tutors.tutors["tutor-1"].Weekly = weekly

	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 180, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAvailable, d.Reason)
	assert.Equal(t, "tutor not available at this time", d.Message)
}

func TestCheckAgainstIndividual(t *testing.T) {
	env := newTestEnv(t)
	seedIndividual(env, "b1", "2026-01-05", 600, 60)

	// Individual over individual.
	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 630, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSlotTaken, d.Reason)
	assert.Equal(t, "already booked for this slot", d.Message)

	// Group over individual.
	d = check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 600, DurationMins: 60,
		Subject: "math", Kind: models.SessionGroup,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCrossType, d.Reason)
	assert.Equal(t, "tutor already booked for an individual session", d.Message)

	// Back to back is fine.
	d = check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 660, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.True(t, d.Allowed)
}

func TestCheckAgainstGroup(t *testing.T) {
	env := newTestEnv(t)
	seedGroup(env, "g1", "2026-01-05", 840, "physics", "grp-1", 2, 3)

	// Individual over group.
	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 870, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCrossType, d.Reason)
	assert.Equal(t, "tutor already hosting a group session at this time", d.Message)

	// Same slot, same subject, capacity left: joinable.
	d = check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 840, DurationMins: 60,
		Subject: "physics", Kind: models.SessionGroup,
	})
	assert.True(t, d.Allowed)
	assert.Equal(t, "grp-1", d.ExistingGroupID)

	// Same slot, different subject: a slot carries one cohort.
	d = check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 840, DurationMins: 60,
		Subject: "chemistry", Kind: models.SessionGroup,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSlotTaken, d.Reason)
	assert.Equal(t, "tutor already hosting a different group at this time", d.Message)

	// Overlapping but offset group request cannot join.
	d = check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 870, DurationMins: 60,
		Subject: "physics", Kind: models.SessionGroup,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSlotTaken, d.Reason)
}

func TestCheckGroupFull(t *testing.T) {
	env := newTestEnv(t)
	seedGroup(env, "g1", "2026-01-05", 840, "physics", "grp-1", 3, 3)

	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 840, DurationMins: 60,
		Subject: "physics", Kind: models.SessionGroup,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonGroupFull, d.Reason)
	assert.Equal(t, "group session is full", d.Message)
}

func TestCheckMidnightSpill(t *testing.T) {
	env := newTestEnv(t)
	// Monday 23:30 for 90 minutes spills into Tuesday.
	seedIndividual(env, "late", "2026-01-05", 1410, 90)

	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-06", StartMin: 0, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSlotTaken, d.Reason)

	d = check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-06", StartMin: 60, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.True(t, d.Allowed)
}

func TestCheckExcludesOwnBookings(t *testing.T) {
	env := newTestEnv(t)
	seedIndividual(env, "b1", "2026-01-05", 600, 60)

	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 630, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
		ExcludeBookingIDs: []string{"b1"},
	})
	assert.True(t, d.Allowed)
}

func TestCheckIgnoresCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.bookings.seed(models.Booking{
		ID: "b1", TutorID: "tutor-1", StudentID: "student-1",
		Date: "2026-01-05", StartMin: 600, DurationMins: 60, Subject: "math",
		Session: models.Session{Kind: models.SessionIndividual},
		Status:  models.BookingCancelled,
	}, nil)

	d := check(t, env, ConflictQuery{
		TutorID: "tutor-1", Date: "2026-01-05", StartMin: 600, DurationMins: 60,
		Subject: "math", Kind: models.SessionIndividual,
	})
	assert.True(t, d.Allowed)
}
