package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"comms-gateway/internal/auth"
	"comms-gateway/internal/comms"
	"comms-gateway/internal/config"
	"comms-gateway/internal/httpapi"
	"comms-gateway/internal/reporting"
	"comms-gateway/internal/telephony"

	"github.com/gin-gonic/gin"
)

type nopProvider struct{}

func (nopProvider) Name() string { return "nop" }
func (nopProvider) SendMessage(context.Context, telephony.MessageRequest) (telephony.Receipt, error) {
	return telephony.Receipt{SID: "SM1", Status: "queued"}, nil
}
func (nopProvider) PlaceCall(context.Context, telephony.CallRequest) (telephony.Receipt, error) {
	return telephony.Receipt{SID: "CA1", Status: "queued"}, nil
}

func testEngine(t *testing.T, m *auth.Manager, validate bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := comms.NewMemoryStore()
	svc := comms.NewService(store, nopProvider{}, nil, comms.Options{SMSNumber: "+1"})

	r := gin.New()
	registerRoutes(r, routeDeps{
		Handlers:          httpapi.Handlers{Comms: svc, Reporting: reporting.NewService(store)},
		Webhooks:          telephony.WebhookHandler{Status: svc, Inbound: svc, Greeting: "Hi"},
		Auth:              m,
		Ready:             map[string]httpapi.Pinger{"store": store},
		ValidateSignature: validate,
		TwilioAuthToken:   "tok",
		PublicBaseURL:     "https://gw.example.com",
	})
	return r
}

func TestOperatorRoutesRequireTokenAndRole(t *testing.T) {
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	r := testEngine(t, m, false)

	get := func(tok string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := get(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	analyst, _ := m.Issue(time.Now(), "u", "analyst")
	if code := get(analyst); code != http.StatusOK {
		t.Fatalf("expected analyst to read, got %d", code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/send-message", strings.NewReader(`{"content":"x","phone_number":"+1555"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+analyst)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected analyst send to be forbidden, got %d", w.Code)
	}
}

func twilioSignature(token, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := fullURL
	for _, k := range keys {
		payload += k + params.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookIgnoresBearerAuthButChecksSignature(t *testing.T) {
	m, _ := auth.NewManager(config.AuthConfig{JWTSecret: "secret"})
	r := testEngine(t, m, true)

	params := url.Values{}
	params.Set("MessageSid", "SM404")
	params.Set("MessageStatus", "delivered")

	send := func(sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/twilio", strings.NewReader(params.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Twilio-Signature", sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	good := twilioSignature("tok", "https://gw.example.com/api/webhook/twilio", params)
	if code := send(good); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send("forged"); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestHealthAndReady(t *testing.T) {
	r := testEngine(t, nil, false)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}
