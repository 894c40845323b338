package scheduling

import "fmt"

// ConflictReason is the machine-readable category carried by every rejected
// slot request. Callers surface the category verbatim; the message is for
// humans.
type ConflictReason string

const (
	ReasonSlotTaken    ConflictReason = "slot_taken"
	ReasonGroupFull    ConflictReason = "group_full"
	ReasonCrossType    ConflictReason = "cross_type"
	ReasonNotAvailable ConflictReason = "not_available"
)

// ConflictError reports that a requested slot is unavailable. Recoverable by
// choosing a different slot or session type; never retried automatically.
type ConflictError struct {
	Reason  ConflictReason
	Message string
	Date    string // set when a recurring batch names the conflicting date
	GroupID string
}

func (e *ConflictError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Reason, e.Message, e.Date)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// ValidationError reports a missing or malformed required field. Surfaced
// immediately, not retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RaceLossError means a concurrent writer claimed the slot between the
// conflict check and the write. Callers treat it like a conflict; it is
// logged separately so lock contention stays diagnosable.
type RaceLossError struct {
	SlotKey string
}

func (e *RaceLossError) Error() string {
	return fmt.Sprintf("slot %s was claimed by a concurrent request", e.SlotKey)
}

// PayoutUnavailableError means the gateway account cannot perform automated
// payouts. Surfaced distinctly so the caller can offer a manual-refund path.
type PayoutUnavailableError struct {
	TxRef   string
	Message string
}

func (e *PayoutUnavailableError) Error() string {
	return fmt.Sprintf("payout unavailable for %s: %s", e.TxRef, e.Message)
}

// GatewayTransientError wraps a network or 5xx failure talking to the
// payment gateway. The booking stays pending; the outer action is safe to
// retry.
type GatewayTransientError struct {
	Op  string
	Err error
}

func (e *GatewayTransientError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayTransientError) Unwrap() error { return e.Err }
