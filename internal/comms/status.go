package comms

import "comms-gateway/internal/calls"

// Message status vocabulary as reported by the provider.
const (
	MessageStatusAccepted           = "accepted"
	MessageStatusScheduled          = "scheduled"
	MessageStatusQueued             = "queued"
	MessageStatusSending            = "sending"
	MessageStatusSent               = "sent"
	MessageStatusDelivered          = "delivered"
	MessageStatusPartiallyDelivered = "partially_delivered"
	MessageStatusUndelivered        = "undelivered"
	MessageStatusFailed             = "failed"
	MessageStatusCanceled           = "canceled"
	MessageStatusRead               = "read"
	MessageStatusReceiving          = "receiving"
	MessageStatusReceived           = "received"
)

func messageRank(status string) (int, bool) {
	switch status {
	case MessageStatusAccepted, MessageStatusScheduled, MessageStatusQueued:
		return 0, true
	case MessageStatusSending, MessageStatusReceiving:
		return 1, true
	case MessageStatusSent:
		return 2, true
	case MessageStatusDelivered, MessageStatusPartiallyDelivered, MessageStatusUndelivered,
		MessageStatusFailed, MessageStatusCanceled, MessageStatusReceived:
		return 3, true
	case MessageStatusRead:
		return 4, true
	default:
		return 0, false
	}
}

// StatusRank orders statuses of a communication type along its lifecycle.
// ok is false for statuses outside the known vocabulary.
func StatusRank(t Type, status string) (rank int, ok bool) {
	if t == TypeCall {
		s := calls.CallStatus(status)
		return calls.Rank(s), calls.Known(s)
	}
	return messageRank(status)
}

// ShouldApply reports whether next may replace current on a row of type t.
// A known status never moves backwards; equal ranks overwrite so repeated
// callbacks are harmless. Statuses the provider adds later cannot be ordered
// and are recorded as reported.
func ShouldApply(t Type, current, next string) bool {
	if next == "" {
		return false
	}
	nextRank, ok := StatusRank(t, next)
	if !ok {
		return true
	}
	curRank, _ := StatusRank(t, current)
	return nextRank >= curRank
}
