package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingRepo "tutorhive/database/repository/booking"
	"tutorhive/models"
)

func recurringReq() RecurringRequest {
	return RecurringRequest{
		TutorID:        "tutor-1",
		StudentID:      "student-1",
		StartDate:      "2026-01-05", // a Monday
		Weekday:        time.Wednesday,
		StartTime:      "10:00",
		DurationMonths: 1,
		Subject:        "math",
	}
}

func TestExpandOccurrences(t *testing.T) {
	// First Wednesday on or after Monday 2026-01-05 is the 7th; one
	// calendar month ends before 2026-02-05.
	dates, err := expandOccurrences("2026-01-05", time.Wednesday, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2026-01-07", "2026-01-14", "2026-01-21", "2026-01-28", "2026-02-04",
	}, dates)
}

func TestExpandOccurrencesStartOnWeekday(t *testing.T) {
	dates, err := expandOccurrences("2026-01-05", time.Monday, 1)
	require.NoError(t, err)
	require.NotEmpty(t, dates)
	assert.Equal(t, "2026-01-05", dates[0])

	// Calendar months, not 30-day blocks: three months from Jan 5 runs to
	// Apr 5 exclusive.
	dates, err = expandOccurrences("2026-01-05", time.Monday, 3)
	require.NoError(t, err)
	assert.Len(t, dates, 13)
	assert.Equal(t, "2026-03-30", dates[len(dates)-1])
}

func TestCreateRecurring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.CreateRecurringBookings(ctx, recurringReq())
	require.NoError(t, err)
	require.Len(t, res.Bookings, 5)
	assert.NotEmpty(t, res.RecurrenceID)
	assert.NotEmpty(t, res.TxRef)
	assert.Equal(t, 200.0, res.TotalPrice) // 5 sessions at rate 40

	for _, b := range res.Bookings {
		assert.Equal(t, res.RecurrenceID, b.RecurrenceID)
		assert.Equal(t, res.TxRef, b.TxRef)
		assert.Equal(t, models.BookingPending, b.Status)
		assert.Equal(t, 600, b.StartMin)
	}

	// One claim per occurrence, one intent for the whole batch.
	assert.Equal(t, 5, env.bookings.claimCount())
	require.Len(t, env.payments.intents, 1)
	assert.Equal(t, res.TotalPrice, env.payments.intents[0].Amount)
	assert.Equal(t, res.TxRef, env.payments.intents[0].TxRef)
	assert.Equal(t, "https://pay.example/"+res.TxRef, res.CheckoutURL)

	batch, err := env.bookings.ListByRecurrence(ctx, res.RecurrenceID)
	require.NoError(t, err)
	assert.Len(t, batch, 5)
}

func TestRetryCheckoutCoversRecurringBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.payments.checkoutErr = &GatewayTransientError{Op: "checkout"}

	res, err := env.engine.CreateRecurringBookings(ctx, recurringReq())
	require.Error(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Bookings, 5)
	assert.Empty(t, env.payments.checkouts)

	// Any occurrence retries the whole batch under the shared reference.
	env.payments.checkoutErr = nil
	retry, err := env.engine.RetryCheckout(ctx, res.Bookings[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/"+res.TxRef, retry.CheckoutURL)
	require.Len(t, env.payments.checkouts, 1)
	assert.Equal(t, res.TxRef, env.payments.checkouts[0])
	assert.Equal(t, []float64{200.0}, env.payments.checkoutAmts)
}

func TestCreateRecurringValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := recurringReq()
	req.DurationMonths = 0
	_, err := env.engine.CreateRecurringBookings(ctx, req)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "durationMonths", ve.Field)

	req = recurringReq()
	req.Weekday = 9
	_, err = env.engine.CreateRecurringBookings(ctx, req)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "weekday", ve.Field)
}

func TestCreateRecurringAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The third occurrence collides with an existing booking.
	seedIndividual(env, "busy", "2026-01-21", 600, 60)

	_, err := env.engine.CreateRecurringBookings(ctx, recurringReq())
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ReasonSlotTaken, ce.Reason)
	assert.Equal(t, "2026-01-21", ce.Date)

	// Nothing from the batch was persisted.
	assert.Equal(t, 0, env.bookings.claimCount())
	assert.Empty(t, env.payments.intents)
	list, err := env.bookings.ListByStudent(ctx, "student-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRecurringRollbackOnRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A claim with no backing booking passes the conflict check but makes
	// the third occurrence's write lose its race.
	env.bookings.seed(models.Booking{
		ID: "ghost", TutorID: "other", Status: models.BookingCancelled,
	}, &bookingRepo.SlotClaim{
		Key:      bookingRepo.ClaimKey("tutor-1", "2026-01-21", 600),
		TutorID:  "tutor-1",
		Date:     "2026-01-21",
		StartMin: 600,
		Kind:     models.SessionIndividual,
		Subject:  "math",
	})

	_, err := env.engine.CreateRecurringBookings(ctx, recurringReq())
	var re *RaceLossError
	require.ErrorAs(t, err, &re)

	// The partial batch was rolled back: only the foreign claim remains
	// and every batch booking ended up cancelled with its claim released.
	assert.Equal(t, 1, env.bookings.claimCount())
	list, err := env.bookings.ListByStudent(ctx, "student-1")
	require.NoError(t, err)
	for _, b := range list {
		assert.Equal(t, models.BookingCancelled, b.Status)
	}
	assert.Empty(t, env.payments.intents)
}
