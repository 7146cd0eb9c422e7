package telephony

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Twilio posts application/x-www-form-urlencoded by default. JSON bodies are also
// accepted so the endpoint can be driven by relays that re-encode callbacks.
// Ref: https://www.twilio.com/docs/usage/webhooks/messaging-webhooks

// CallbackKind tells which resource a status callback is about.
type CallbackKind string

const (
	CallbackMessage CallbackKind = "message"
	CallbackCall    CallbackKind = "call"
	CallbackUnknown CallbackKind = "unknown"
)

// StatusCallback captures the subset of status callback fields we act on.
type StatusCallback struct {
	MessageSid    string `json:"MessageSid,omitempty"`
	MessageStatus string `json:"MessageStatus,omitempty"`
	CallSid       string `json:"CallSid,omitempty"`
	CallStatus    string `json:"CallStatus,omitempty"`

	// CallDuration is 0 when the field is missing or not a number.
	CallDuration int `json:"CallDuration,omitempty"`

	ErrorCode string `json:"ErrorCode,omitempty"`
}

// Kind returns CallbackMessage when MessageSid is present, otherwise CallbackCall
// when CallSid is present.
func (s StatusCallback) Kind() CallbackKind {
	switch {
	case s.MessageSid != "":
		return CallbackMessage
	case s.CallSid != "":
		return CallbackCall
	default:
		return CallbackUnknown
	}
}

// SID returns the correlation id the callback refers to.
func (s StatusCallback) SID() string {
	if s.MessageSid != "" {
		return s.MessageSid
	}
	return s.CallSid
}

// Status returns the reported status for the callback's kind.
func (s StatusCallback) Status() string {
	if s.Kind() == CallbackMessage {
		return s.MessageStatus
	}
	return s.CallStatus
}

// InboundMessage is an incoming SMS or WhatsApp message. Only the fields the
// communications log records are kept.
type InboundMessage struct {
	MessageSid string
	From       string
}

// ParseStatusCallback reads a Twilio status callback from r.
func ParseStatusCallback(r *http.Request) (StatusCallback, error) {
	fields, err := readFields(r)
	if err != nil {
		return StatusCallback{}, err
	}
	status := fields["MessageStatus"]
	if status == "" {
		// Older messaging callbacks only carry SmsStatus.
		status = fields["SmsStatus"]
	}
	messageSid := fields["MessageSid"]
	if messageSid == "" {
		messageSid = fields["SmsSid"]
	}
	return StatusCallback{
		MessageSid:    messageSid,
		MessageStatus: status,
		CallSid:       fields["CallSid"],
		CallStatus:    fields["CallStatus"],
		CallDuration:  parseDuration(fields["CallDuration"]),
		ErrorCode:     fields["ErrorCode"],
	}, nil
}

// ParseInboundMessage reads Twilio's incoming message webhook from r.
func ParseInboundMessage(r *http.Request) (InboundMessage, error) {
	fields, err := readFields(r)
	if err != nil {
		return InboundMessage{}, err
	}
	m := InboundMessage{
		MessageSid: fields["MessageSid"],
		From:       strings.TrimSpace(fields["From"]),
	}
	if m.MessageSid == "" {
		m.MessageSid = fields["SmsSid"]
	}
	if m.MessageSid == "" {
		return InboundMessage{}, fmt.Errorf("telephony: inbound message without MessageSid")
	}
	return m, nil
}

// maxCallbackBody matches the cap net/http applies to form bodies in ParseForm.
const maxCallbackBody = 10 << 20

func readFields(r *http.Request) (map[string]string, error) {
	out := map[string]string{}
	if isJSON(r.Header.Get("Content-Type")) {
		body, err := readLimited(r)
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return out, nil
		}
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("telephony: invalid json callback: %w", err)
		}
		for k, v := range raw {
			switch tv := v.(type) {
			case nil:
			case string:
				out[k] = tv
			case float64:
				out[k] = strconv.FormatFloat(tv, 'f', -1, 64)
			default:
				out[k] = fmt.Sprint(tv)
			}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for k := range r.PostForm {
		out[k] = r.PostForm.Get(k)
	}
	return out, nil
}

func readLimited(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxCallbackBody))
	if err != nil {
		return nil, fmt.Errorf("telephony: read callback body: %w", err)
	}
	return body, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json"
}

func parseDuration(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
