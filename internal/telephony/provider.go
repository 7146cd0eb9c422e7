package telephony

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the outbound half of the telephony boundary.
//
// Rules:
//   - No provider SDK or REST calls outside telephony adapters.
//   - Addresses are passed through as-is; channel prefixes are applied by the caller.
type Provider interface {
	Name() string

	SendMessage(ctx context.Context, req MessageRequest) (Receipt, error)
	PlaceCall(ctx context.Context, req CallRequest) (Receipt, error)
}

// MessageRequest asks the provider to deliver one SMS or WhatsApp message.
type MessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`

	// StatusCallback is optional; when set the provider posts delivery updates there.
	StatusCallback string `json:"status_callback,omitempty"`
}

// CallRequest asks the provider to originate a voice call.
type CallRequest struct {
	From string `json:"from"`
	To   string `json:"to"`

	// URL is fetched by the provider when the call connects and must return TwiML.
	URL string `json:"url"`

	StatusCallback       string   `json:"status_callback,omitempty"`
	StatusCallbackEvents []string `json:"status_callback_events,omitempty"`
}

// Receipt is the provider's synchronous answer to a send or call request.
type Receipt struct {
	// SID is the correlation id later echoed by status callbacks.
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// ProviderError is returned when the provider answered with a non-2xx response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       int
	Message    string
	MoreInfo   string
}

func (e *ProviderError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request rejected"
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (status %d, code %d)", e.Provider, msg, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, msg, e.StatusCode)
}

const whatsAppPrefix = "whatsapp:"

// WhatsAppAddress returns number in the provider's WhatsApp address form.
func WhatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if IsWhatsAppAddress(number) {
		return number
	}
	return whatsAppPrefix + number
}

// IsWhatsAppAddress reports whether addr carries the WhatsApp channel prefix.
func IsWhatsAppAddress(addr string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(addr)), whatsAppPrefix)
}

// StripChannel removes a channel prefix such as "whatsapp:" from addr.
func StripChannel(addr string) string {
	addr = strings.TrimSpace(addr)
	if IsWhatsAppAddress(addr) {
		return addr[len(whatsAppPrefix):]
	}
	return addr
}
