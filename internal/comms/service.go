package comms

import (
	"context"
	"strings"
	"time"

	"comms-gateway/internal/calls"
	"comms-gateway/internal/metrics"
	"comms-gateway/internal/telephony"
	"comms-gateway/pkg/logger"

	"github.com/google/uuid"
)

// CallLimiter caps concurrent outbound calls per lead.
type CallLimiter interface {
	Acquire(ctx context.Context, leadID string) (bool, error)
	Release(ctx context.Context, leadID string) error
}

// Options holds the sender addresses and public callback URLs.
type Options struct {
	SMSNumber      string
	WhatsAppNumber string

	// CallURL is fetched by the provider when an outbound call connects.
	CallURL string
	// StatusCallbackURL receives delivery and call status updates. Optional.
	StatusCallbackURL string
}

// Service implements sending, calling, status callbacks and reads over a Store
// and a telephony Provider.
//
// The provider call always happens before the write. If the write fails the
// external action has already happened; the returned *Error carries its SID.
type Service struct {
	store    Store
	provider telephony.Provider
	limiter  CallLimiter
	opts     Options

	clock func() time.Time
	newID func() string
}

func NewService(store Store, provider telephony.Provider, limiter CallLimiter, opts Options) *Service {
	if limiter == nil {
		limiter = calls.NoopLimiter{}
	}
	return &Service{
		store:    store,
		provider: provider,
		limiter:  limiter,
		opts:     opts,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// callStatusEvents are the call progress events we subscribe to.
var callStatusEvents = []string{"initiated", "ringing", "answered", "completed"}

type SendMessageRequest struct {
	Content     string
	PhoneNumber string
	Type        Type
	LeadID      string
}

type SendMessageResult struct {
	MessageSID string
	Status     string
}

func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResult, error) {
	const op = "send_message"

	to := strings.TrimSpace(req.PhoneNumber)
	if to == "" {
		return SendMessageResult{}, invalid(op, "phone_number is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return SendMessageResult{}, invalid(op, "content is required")
	}
	if req.Type == "" {
		req.Type = TypeSMS
	}

	var from string
	switch req.Type {
	case TypeSMS:
		from = s.opts.SMSNumber
	case TypeWhatsApp:
		if s.opts.WhatsAppNumber == "" {
			return SendMessageResult{}, invalid(op, "whatsapp sender is not configured")
		}
		from = telephony.WhatsAppAddress(s.opts.WhatsAppNumber)
		to = telephony.WhatsAppAddress(to)
	default:
		return SendMessageResult{}, invalid(op, "type must be sms or whatsapp, got %q", req.Type)
	}

	rec, err := s.provider.SendMessage(ctx, telephony.MessageRequest{
		From:           from,
		To:             to,
		Body:           req.Content,
		StatusCallback: s.opts.StatusCallbackURL,
	})
	if err != nil {
		metrics.MessagesSent.WithLabelValues(string(req.Type), "provider_error").Inc()
		return SendMessageResult{}, providerErr(op, err)
	}

	now := s.clock().UTC()
	c := Communication{
		ID:        s.newID(),
		Type:      req.Type,
		Direction: DirectionOutbound,
		Status:    rec.Status,
		TwilioSID: rec.SID,
		LeadID:    strPtr(strings.TrimSpace(req.LeadID)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertCommunication(ctx, c); err != nil {
		metrics.MessagesSent.WithLabelValues(string(req.Type), "persistence_error").Inc()
		return SendMessageResult{}, persistenceErr(op, rec.SID, err)
	}

	metrics.MessagesSent.WithLabelValues(string(req.Type), "ok").Inc()
	return SendMessageResult{MessageSID: rec.SID, Status: rec.Status}, nil
}

type InitiateCallRequest struct {
	PhoneNumber string
	LeadID      string
}

type InitiateCallResult struct {
	CallSID string
	Status  string
}

func (s *Service) InitiateCall(ctx context.Context, req InitiateCallRequest) (InitiateCallResult, error) {
	const op = "initiate_call"

	to := strings.TrimSpace(req.PhoneNumber)
	leadID := strings.TrimSpace(req.LeadID)
	if to == "" {
		return InitiateCallResult{}, invalid(op, "phone_number is required")
	}
	if leadID == "" {
		return InitiateCallResult{}, invalid(op, "lead_id is required")
	}

	ok, err := s.limiter.Acquire(ctx, leadID)
	if err != nil {
		metrics.CallsInitiated.WithLabelValues("limiter_error").Inc()
		return InitiateCallResult{}, persistenceErr(op, "", err)
	}
	if !ok {
		metrics.CallsInitiated.WithLabelValues("capacity").Inc()
		return InitiateCallResult{}, &Error{Kind: KindCapacity, Op: op, Err: ErrCallCapReached}
	}

	creq := telephony.CallRequest{
		From: s.opts.SMSNumber,
		To:   to,
		URL:  s.opts.CallURL,
	}
	if s.opts.StatusCallbackURL != "" {
		creq.StatusCallback = s.opts.StatusCallbackURL
		creq.StatusCallbackEvents = callStatusEvents
	}
	rec, err := s.provider.PlaceCall(ctx, creq)
	if err != nil {
		if rerr := s.limiter.Release(ctx, leadID); rerr != nil {
			logger.From(ctx).Warn("call slot release failed", "lead_id", leadID, "err", rerr)
		}
		metrics.CallsInitiated.WithLabelValues("provider_error").Inc()
		return InitiateCallResult{}, providerErr(op, err)
	}

	now := s.clock().UTC()
	c := Communication{
		ID:        s.newID(),
		Type:      TypeCall,
		Direction: DirectionOutbound,
		Status:    rec.Status,
		TwilioSID: rec.SID,
		LeadID:    strPtr(leadID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The call is live; its slot is released by the terminal status callback or the TTL.
	if err := s.store.InsertCommunication(ctx, c); err != nil {
		metrics.CallsInitiated.WithLabelValues("persistence_error").Inc()
		return InitiateCallResult{}, persistenceErr(op, rec.SID, err)
	}

	metrics.CallsInitiated.WithLabelValues("ok").Inc()
	return InitiateCallResult{CallSID: rec.SID, Status: rec.Status}, nil
}

// ApplyStatusCallback updates the row whose correlation id matches the callback.
// Unknown ids and stale statuses are not errors.
func (s *Service) ApplyStatusCallback(ctx context.Context, cb telephony.StatusCallback) error {
	const op = "status_callback"

	kind := cb.Kind()
	if kind == telephony.CallbackUnknown {
		metrics.StatusCallbacks.WithLabelValues(string(kind), "ignored").Inc()
		return nil
	}

	upd := StatusUpdate{Status: cb.Status(), At: s.clock().UTC()}
	if kind == telephony.CallbackCall {
		upd.Duration = intPtr(cb.CallDuration)
	}

	res, err := s.store.ApplyStatus(ctx, cb.SID(), upd)
	if err != nil {
		metrics.StatusCallbacks.WithLabelValues(string(kind), "error").Inc()
		return persistenceErr(op, cb.SID(), err)
	}
	metrics.StatusCallbacks.WithLabelValues(string(kind), string(res.Outcome)).Inc()

	log := logger.From(ctx)
	if cb.ErrorCode != "" || upd.Status == MessageStatusFailed || upd.Status == MessageStatusUndelivered {
		log.Warn("provider reported delivery failure", "sid", cb.SID(), "kind", kind, "status", upd.Status, "error_code", cb.ErrorCode)
	}
	switch res.Outcome {
	case OutcomeNotFound:
		log.Debug("status callback matched no record", "sid", cb.SID(), "status", upd.Status)
	case OutcomeStale:
		log.Info("stale status callback dropped", "sid", cb.SID(), "current", res.Current.Status, "reported", upd.Status)
	case OutcomeApplied:
		s.releaseFinishedCall(ctx, res)
	}
	return nil
}

func (s *Service) releaseFinishedCall(ctx context.Context, res ApplyResult) {
	if res.Current.Type != TypeCall || res.Current.LeadID == nil {
		return
	}
	if calls.IsTerminal(calls.CallStatus(res.Previous.Status)) || !calls.IsTerminal(calls.CallStatus(res.Current.Status)) {
		return
	}
	if err := s.limiter.Release(ctx, *res.Current.LeadID); err != nil {
		logger.From(ctx).Warn("call slot release failed", "lead_id", *res.Current.LeadID, "err", err)
	}
}

// RecordInbound stores an incoming message, linked to the lead whose phone matches the sender.
func (s *Service) RecordInbound(ctx context.Context, msg telephony.InboundMessage) error {
	const op = "record_inbound"

	if msg.MessageSid == "" {
		return invalid(op, "MessageSid is required")
	}
	t := TypeSMS
	if telephony.IsWhatsAppAddress(msg.From) {
		t = TypeWhatsApp
	}

	var leadID *string
	if phone := telephony.StripChannel(msg.From); phone != "" {
		lead, found, err := s.store.FindLeadByPhone(ctx, phone)
		if err != nil {
			return persistenceErr(op, msg.MessageSid, err)
		}
		if found {
			leadID = strPtr(lead.ID)
		}
	}

	now := s.clock().UTC()
	c := Communication{
		ID:        s.newID(),
		Type:      t,
		Direction: DirectionInbound,
		Status:    MessageStatusReceived,
		TwilioSID: msg.MessageSid,
		LeadID:    leadID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertCommunication(ctx, c); err != nil {
		return persistenceErr(op, msg.MessageSid, err)
	}
	metrics.InboundMessages.WithLabelValues(string(t)).Inc()
	return nil
}

func (s *Service) ListLeads(ctx context.Context) ([]Lead, error) {
	leads, err := s.store.ListLeads(ctx)
	if err != nil {
		return nil, persistenceErr("list_leads", "", err)
	}
	if leads == nil {
		leads = []Lead{}
	}
	return leads, nil
}

func (s *Service) ListCommunications(ctx context.Context, leadID string) ([]Communication, error) {
	const op = "list_communications"
	if strings.TrimSpace(leadID) == "" {
		return nil, invalid(op, "lead_id is required")
	}
	out, err := s.store.ListCommunicationsByLead(ctx, leadID)
	if err != nil {
		return nil, persistenceErr(op, "", err)
	}
	if out == nil {
		out = []Communication{}
	}
	return out, nil
}
