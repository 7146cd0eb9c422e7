package calls

// CallStatus is the provider's call status vocabulary as reported by status callbacks.
// Values are Twilio's wire strings; do not normalize them.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusCanceled   CallStatus = "canceled"
)

// Rank orders call statuses along the call lifecycle. Unknown statuses rank 0;
// use Known to tell them apart from queued.
func Rank(s CallStatus) int {
	switch s {
	case CallStatusQueued:
		return 0
	case CallStatusInitiated:
		return 1
	case CallStatusRinging:
		return 2
	case CallStatusInProgress:
		return 3
	case CallStatusCompleted, CallStatusBusy, CallStatusFailed, CallStatusNoAnswer, CallStatusCanceled:
		return 4
	default:
		return 0
	}
}

// IsTerminal reports whether no further status changes are expected.
func IsTerminal(s CallStatus) bool {
	switch s {
	case CallStatusCompleted, CallStatusBusy, CallStatusFailed, CallStatusNoAnswer, CallStatusCanceled:
		return true
	default:
		return false
	}
}

// Known reports whether s is part of the call status vocabulary.
func Known(s CallStatus) bool {
	switch s {
	case CallStatusQueued, CallStatusInitiated, CallStatusRinging, CallStatusInProgress,
		CallStatusCompleted, CallStatusBusy, CallStatusFailed, CallStatusNoAnswer, CallStatusCanceled:
		return true
	default:
		return false
	}
}
