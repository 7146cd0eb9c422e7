package telephony

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const twilioAPIVersion = "2010-04-01"

// TwilioOptions configures the Twilio REST adapter.
type TwilioOptions struct {
	AccountSID string
	AuthToken  string

	// BaseURL defaults to https://api.twilio.com; tests point it at httptest servers.
	BaseURL string
	Timeout time.Duration
}

// TwilioProvider talks to the Twilio REST API over resty.
type TwilioProvider struct {
	http       *resty.Client
	accountSID string
}

func NewTwilioProvider(opts TwilioOptions) (*TwilioProvider, error) {
	if opts.AccountSID == "" {
		return nil, errors.New("telephony: twilio account sid is required")
	}
	if opts.AuthToken == "" {
		return nil, errors.New("telephony: twilio auth token is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.twilio.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetBasicAuth(opts.AccountSID, opts.AuthToken).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout)

	return &TwilioProvider{http: client, accountSID: opts.AccountSID}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

// twilioResource is the subset of the Message and Call resources we read back.
type twilioResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (p *TwilioProvider) SendMessage(ctx context.Context, req MessageRequest) (Receipt, error) {
	if req.To == "" || req.From == "" {
		return Receipt{}, errors.New("telephony: message from/to required")
	}
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Body", req.Body)
	if req.StatusCallback != "" {
		form.Set("StatusCallback", req.StatusCallback)
	}
	return p.create(ctx, "Messages.json", form)
}

func (p *TwilioProvider) PlaceCall(ctx context.Context, req CallRequest) (Receipt, error) {
	if req.To == "" || req.From == "" {
		return Receipt{}, errors.New("telephony: call from/to required")
	}
	if req.URL == "" {
		return Receipt{}, errors.New("telephony: call url required")
	}
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Url", req.URL)
	if req.StatusCallback != "" {
		form.Set("StatusCallback", req.StatusCallback)
		for _, ev := range req.StatusCallbackEvents {
			form.Add("StatusCallbackEvent", ev)
		}
	}
	return p.create(ctx, "Calls.json", form)
}

func (p *TwilioProvider) create(ctx context.Context, resource string, form url.Values) (Receipt, error) {
	path := fmt.Sprintf("/%s/Accounts/{account_sid}/%s", twilioAPIVersion, resource)

	var out twilioResource
	var apiErr twilioErrorBody
	resp, err := p.http.R().
		SetContext(ctx).
		SetPathParam("account_sid", p.accountSID).
		SetFormDataFromValues(form).
		SetResult(&out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("twilio: %s request failed: %w", resource, err)
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return Receipt{}, &ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode(),
			Code:       apiErr.Code,
			Message:    msg,
			MoreInfo:   apiErr.MoreInfo,
		}
	}
	if out.SID == "" {
		return Receipt{}, fmt.Errorf("twilio: %s response carried no sid", resource)
	}
	return Receipt{SID: out.SID, Status: out.Status}, nil
}
