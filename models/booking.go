package models

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// SessionKind distinguishes individual sessions from group cohorts.
type SessionKind string

const (
	SessionIndividual SessionKind = "individual"
	SessionGroup      SessionKind = "group"
)

// GroupSession carries the cohort data for group bookings. Size is only ever
// changed by a guarded storage-level update, never by read-modify-write.
type GroupSession struct {
	GroupID string `bson:"group_id" json:"groupId"`
	MaxSize int    `bson:"max_size" json:"maxSize"`
	Size    int    `bson:"size" json:"size"`
}

// Session is the tagged session variant: Kind selects the shape, Group is
// non-nil exactly when Kind == SessionGroup.
type Session struct {
	Kind  SessionKind   `bson:"kind" json:"kind"`
	Group *GroupSession `bson:"group,omitempty" json:"group,omitempty"`
}

// BankDetails is the payout destination a student supplies when filing a
// dispute. Passed through to the gateway refund call, never validated here.
type BankDetails struct {
	AccountName   string `bson:"account_name" json:"accountName"`
	AccountNumber string `bson:"account_number" json:"accountNumber"`
	BankCode      string `bson:"bank_code" json:"bankCode"`
}

// Dispute tracks a student complaint against a booking and its resolution.
type Dispute struct {
	Filed      bool        `bson:"filed" json:"filed"`
	Reason     string      `bson:"reason,omitempty" json:"reason,omitempty"`
	Resolved   bool        `bson:"resolved" json:"resolved"`
	Outcome    string      `bson:"outcome,omitempty" json:"outcome,omitempty"` // "refunded" or "rejected"
	FiledAt    *time.Time  `bson:"filed_at,omitempty" json:"filedAt,omitempty"`
	ResolvedAt *time.Time  `bson:"resolved_at,omitempty" json:"resolvedAt,omitempty"`
	Bank       BankDetails `bson:"bank,omitempty" json:"bank,omitempty"`
}

const (
	DisputeRefunded = "refunded"
	DisputeRejected = "rejected"
)

// Reschedule records the previous slot after a booking is moved.
type Reschedule struct {
	WasRescheduled bool   `bson:"was_rescheduled" json:"wasRescheduled"`
	OldDate        string `bson:"old_date,omitempty" json:"oldDate,omitempty"`
	OldStartMin    int    `bson:"old_start_min,omitempty" json:"oldStartMin,omitempty"`
	Note           string `bson:"note,omitempty" json:"note,omitempty"`
}

// Booking is the central scheduling record.
type Booking struct {
	ID        string `bson:"id" json:"id"`
	TutorID   string `bson:"tutor_id" json:"tutorId"`
	StudentID string `bson:"student_id" json:"studentId"`

	Date         string `bson:"date" json:"date"`           // "YYYY-MM-DD"
	StartMin     int    `bson:"start_min" json:"startMin"`  // minutes from midnight
	DurationMins int    `bson:"duration_mins" json:"durationMins"`
	Subject      string `bson:"subject" json:"subject"`

	Price       float64 `bson:"price" json:"price"`
	IsPaid      bool    `bson:"is_paid" json:"isPaid"`
	IsTutorPaid bool    `bson:"is_tutor_paid" json:"isTutorPaid"`
	TxRef       string  `bson:"tx_ref" json:"txRef"`

	Session      Session       `bson:"session" json:"session"`
	Status       BookingStatus `bson:"status" json:"status"`
	RecurrenceID string        `bson:"recurrence_id,omitempty" json:"recurrenceId,omitempty"`

	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completedAt,omitempty"`

	Dispute    Dispute    `bson:"dispute" json:"dispute"`
	Reschedule Reschedule `bson:"reschedule" json:"reschedule"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsGroup reports whether the booking belongs to a group cohort.
func (b *Booking) IsGroup() bool {
	return b.Session.Kind == SessionGroup && b.Session.Group != nil
}
