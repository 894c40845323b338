package models

import "time"

// PaymentStatus enumerates the states of a funds-movement attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one funds-movement attempt for a booking. Payments are an
// audit trail: they transition to a terminal status exactly once and are
// never deleted.
type Payment struct {
	ID         string         `bson:"id" json:"id"`
	BookingID  string         `bson:"booking_id" json:"bookingId"`
	TxRef      string         `bson:"tx_ref" json:"txRef"` // unique external reference
	Amount     float64        `bson:"amount" json:"amount"`
	Status     PaymentStatus  `bson:"status" json:"status"`
	RawPayload map[string]any `bson:"raw_payload,omitempty" json:"rawPayload,omitempty"`
	CreatedAt  time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `bson:"updated_at" json:"updatedAt"`
}
