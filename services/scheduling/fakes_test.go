package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	bookingRepo "tutorhive/database/repository/booking"
	tutorRepo "tutorhive/database/repository/tutor"
	userRepo "tutorhive/database/repository/user"
	"tutorhive/models"
)

// fixedNow pins the engine clock; all test sessions are scheduled after it.
var fixedNow = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

// memBookingRepo is an in-memory BookingRepository with the same claim
// semantics as the Mongo implementation.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	claims   map[string]*bookingRepo.SlotClaim
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		bookings: make(map[string]*models.Booking),
		claims:   make(map[string]*bookingRepo.SlotClaim),
	}
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	if b.Session.Group != nil {
		g := *b.Session.Group
		c.Session.Group = &g
	}
	return &c
}

// seed inserts a booking (and, when claim is non-nil, its slot claim)
// without going through the transactional path.
func (r *memBookingRepo) seed(b models.Booking, claim *bookingRepo.SlotClaim) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = cloneBooking(&b)
	if claim != nil {
		c := *claim
		r.claims[c.Key] = &c
	}
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memBookingRepo) ListByTxRef(ctx context.Context, txRef string) ([]models.Booking, error) {
	return r.list(func(b *models.Booking) bool { return b.TxRef == txRef })
}

func (r *memBookingRepo) ListActiveByTutorDates(ctx context.Context, tutorID string, dates []string) ([]models.Booking, error) {
	in := make(map[string]bool, len(dates))
	for _, d := range dates {
		in[d] = true
	}
	return r.list(func(b *models.Booking) bool {
		return b.TutorID == tutorID && in[b.Date] && b.Status != models.BookingCancelled
	})
}

func (r *memBookingRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Booking, error) {
	return r.list(func(b *models.Booking) bool { return b.StudentID == studentID })
}

func (r *memBookingRepo) ListByTutorDate(ctx context.Context, tutorID, date string) ([]models.Booking, error) {
	return r.list(func(b *models.Booking) bool { return b.TutorID == tutorID && b.Date == date })
}

func (r *memBookingRepo) ListByGroup(ctx context.Context, groupID string) ([]models.Booking, error) {
	return r.list(func(b *models.Booking) bool {
		return b.IsGroup() && b.Session.Group.GroupID == groupID && b.Status != models.BookingCancelled
	})
}

func (r *memBookingRepo) ListByRecurrence(ctx context.Context, recurrenceID string) ([]models.Booking, error) {
	return r.list(func(b *models.Booking) bool { return b.RecurrenceID == recurrenceID })
}

func (r *memBookingRepo) list(keep func(*models.Booking) bool) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, *cloneBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) GetClaim(ctx context.Context, key string) (*bookingRepo.SlotClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[key]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (r *memBookingRepo) CreateWithClaim(ctx context.Context, booking *models.Booking, claim *bookingRepo.SlotClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.claims[claim.Key]; exists {
		return bookingRepo.ErrClaimExists
	}
	c := *claim
	r.claims[c.Key] = &c
	r.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r *memBookingRepo) AttachToCohort(ctx context.Context, booking *models.Booking, claimKey string) (*bookingRepo.SlotClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[claimKey]
	if !ok || c.Kind != models.SessionGroup || c.Subject != booking.Subject || c.Size >= c.MaxSize {
		return nil, bookingRepo.ErrClaimGuard
	}
	c.Size++
	booking.Session = models.Session{
		Kind:  models.SessionGroup,
		Group: &models.GroupSession{GroupID: c.GroupID, MaxSize: c.MaxSize, Size: c.Size},
	}
	r.bookings[booking.ID] = cloneBooking(booking)
	for _, b := range r.bookings {
		if b.ID != booking.ID && b.IsGroup() && b.Session.Group.GroupID == c.GroupID {
			b.Session.Group.Size = c.Size
		}
	}
	cc := *c
	return &cc, nil
}

func (r *memBookingRepo) ReleaseSlot(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := bookingRepo.ClaimKey(booking.TutorID, booking.Date, booking.StartMin)
	if !booking.IsGroup() {
		delete(r.claims, key)
		return nil
	}
	c, ok := r.claims[key]
	if !ok || c.GroupID != booking.Session.Group.GroupID || c.Size <= 0 {
		return bookingRepo.ErrClaimGuard
	}
	c.Size--
	if c.Size <= 0 {
		delete(r.claims, key)
	}
	for _, b := range r.bookings {
		if b.ID != booking.ID && b.IsGroup() && b.Session.Group.GroupID == c.GroupID {
			b.Session.Group.Size = c.Size
		}
	}
	return nil
}

func (r *memBookingRepo) MoveClaim(ctx context.Context, oldKey string, claim *bookingRepo.SlotClaim, bookingIDs []string, newDate string, newStartMin int, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claims[oldKey]; !ok {
		return bookingRepo.ErrNotFound
	}
	if _, exists := r.claims[claim.Key]; exists {
		return bookingRepo.ErrClaimExists
	}
	delete(r.claims, oldKey)
	c := *claim
	r.claims[c.Key] = &c
	for _, id := range bookingIDs {
		b, ok := r.bookings[id]
		if !ok {
			return bookingRepo.ErrNotFound
		}
		b.Reschedule = models.Reschedule{
			WasRescheduled: true,
			OldDate:        b.Date,
			OldStartMin:    b.StartMin,
			Note:           note,
		}
		b.Date = newDate
		b.StartMin = newStartMin
		b.UpdatedAt = time.Now()
	}
	return nil
}

func (r *memBookingRepo) MarkCancelled(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || (b.Status != models.BookingPending && b.Status != models.BookingConfirmed) {
		return true, nil
	}
	b.Status = models.BookingCancelled
	b.UpdatedAt = time.Now()
	return false, nil
}

func (r *memBookingRepo) SetDispute(ctx context.Context, id string, dispute models.Dispute) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || !b.IsPaid || b.Dispute.Filed {
		return true, nil
	}
	b.Dispute = dispute
	return false, nil
}

func (r *memBookingRepo) ResolveDispute(ctx context.Context, id string, dispute models.Dispute, refunded bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || !b.Dispute.Filed || b.Dispute.Resolved {
		return true, nil
	}
	b.Dispute = dispute
	if refunded {
		b.Status = models.BookingCancelled
		b.IsPaid = false
	}
	return false, nil
}

func (r *memBookingRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Completed {
		return true, nil
	}
	b.Completed = true
	b.CompletedAt = &at
	return false, nil
}

func (r *memBookingRepo) ConfirmPaid(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.IsPaid || b.Status != models.BookingPending {
		return true, nil
	}
	b.IsPaid = true
	b.Status = models.BookingConfirmed
	return false, nil
}

func (r *memBookingRepo) claimCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}

// memTutorRepo is an in-memory TutorRepository.
type memTutorRepo struct {
	mu     sync.Mutex
	tutors map[string]*models.TutorProfile
}

func (r *memTutorRepo) GetByID(ctx context.Context, id string) (*models.TutorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[id]
	if !ok {
		return nil, errTutorNotFound
	}
	tt := *t
	return &tt, nil
}

func (r *memTutorRepo) Upsert(ctx context.Context, tutor *models.TutorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *tutor
	r.tutors[t.ID] = &t
	return nil
}

func (r *memTutorRepo) SetWeeklyAvailability(ctx context.Context, id string, weekly models.WeeklyAvailability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[id]
	if !ok {
		return errTutorNotFound
	}
	t.Weekly = weekly
	return nil
}

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	uu := *u
	return &uu, nil
}

func (r *memUserRepo) AppendNotification(ctx context.Context, userID string, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return errUserNotFound
	}
	u.Notifications = append(u.Notifications, n)
	return nil
}

// paymentIntent records one RecordIntent call.
type paymentIntent struct {
	BookingID string
	Amount    float64
	TxRef     string
}

// paymentSpy records payment-linkage calls and lets tests inject failures.
type paymentSpy struct {
	mu           sync.Mutex
	intents      []paymentIntent
	checkouts    []string
	checkoutAmts []float64
	refunds      []string
	checkoutErr  error
	refundErr    error
}

func (p *paymentSpy) RecordIntent(ctx context.Context, bookingID string, amount float64, txRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, paymentIntent{BookingID: bookingID, Amount: amount, TxRef: txRef})
	return nil
}

func (p *paymentSpy) InitCheckout(ctx context.Context, amount float64, txRef string, payer *models.User) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkoutErr != nil {
		return "", p.checkoutErr
	}
	p.checkouts = append(p.checkouts, txRef)
	p.checkoutAmts = append(p.checkoutAmts, amount)
	return "https://pay.example/" + txRef, nil
}

func (p *paymentSpy) Refund(ctx context.Context, txRef string, bank models.BankDetails) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refunds = append(p.refunds, txRef)
	return nil
}

// notifyEvent records one delivered notification.
type notifyEvent struct {
	UserID string
	Type   string
}

type notifySpy struct {
	mu     sync.Mutex
	events []notifyEvent
}

func (n *notifySpy) Notify(ctx context.Context, userID, eventType, message string, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifyEvent{UserID: userID, Type: eventType})
}

func (n *notifySpy) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == eventType {
			c++
		}
	}
	return c
}

var (
	errTutorNotFound = tutorRepo.ErrNotFound
	errUserNotFound  = userRepo.ErrNotFound
)

// allDayWeekly opens every weekday from 00:00 to 23:59.
func allDayWeekly() models.WeeklyAvailability {
	var w models.WeeklyAvailability
	for i := range w {
		w[i] = models.DayWindow{Available: true, FromMin: 0, ToMin: 1439}
	}
	return w
}

type testEnv struct {
	engine   *DefaultSchedulingEngine
	bookings *memBookingRepo
	tutors   *memTutorRepo
	users    *memUserRepo
	payments *paymentSpy
	notifier *notifySpy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	bookings := newMemBookingRepo()
	tutors := &memTutorRepo{tutors: map[string]*models.TutorProfile{
		"tutor-1": {ID: "tutor-1", Name: "Amara", HourlyRate: 40, Weekly: allDayWeekly()},
	}}
	users := &memUserRepo{users: map[string]*models.User{
		"student-1": {ID: "student-1", Name: "Lee", Email: "lee@example.com", Role: "student"},
		"student-2": {ID: "student-2", Name: "Priya", Email: "priya@example.com", Role: "student"},
		"student-3": {ID: "student-3", Name: "Omar", Email: "omar@example.com", Role: "student"},
	}}
	payments := &paymentSpy{}
	notifier := &notifySpy{}

	engine := &DefaultSchedulingEngine{
		Bookings: bookings,
		Tutors:   tutors,
		Users:    users,
		Payments: payments,
		Notifier: notifier,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return fixedNow },
	}
	return &testEnv{
		engine:   engine,
		bookings: bookings,
		tutors:   tutors,
		users:    users,
		payments: payments,
		notifier: notifier,
	}
}
