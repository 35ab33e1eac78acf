package schema

import "time"

// CallStatus is the lifecycle state of one outbound phone call.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
	CallTimedOut  CallStatus = "timed_out"
)

// CallJob tracks one outbound call attempt with the voice provider.
// Transitions are driven solely by polling; completed, failed and timed_out
// are terminal.
type CallJob struct {
	CallID     string     `json:"call_id"`
	Status     CallStatus `json:"status"`
	Transcript *string    `json:"transcript"`
	StartedAt  time.Time  `json:"started_at"`
}
