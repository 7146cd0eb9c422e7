package comms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"comms-gateway/internal/supabase"
)

func newSupabaseStore(t *testing.T, h http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := supabase.NewClient(supabase.Options{URL: srv.URL, Key: "anon"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewSupabaseStore(client)
}

func TestSupabaseApplyStatus_ConditionalPatch(t *testing.T) {
	var patchQuery string
	var patchBody map[string]any

	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("twilio_sid") != "eq.CA1" {
				t.Errorf("unexpected select filter %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"id":"c1","type":"call","direction":"outbound","status":"ringing","twilio_sid":"CA1","lead_id":"l1"}]`))
		case http.MethodPatch:
			patchQuery = r.URL.RawQuery
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &patchBody)
			_, _ = w.Write([]byte(`[{"id":"c1","type":"call","direction":"outbound","status":"completed","twilio_sid":"CA1","lead_id":"l1","duration":12}]`))
		}
	})

	d := 12
	res, err := store.ApplyStatus(context.Background(), "CA1", StatusUpdate{Status: "completed", Duration: &d, At: time.Now()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Outcome != OutcomeApplied || res.Previous.Status != "ringing" || res.Current.Status != "completed" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if patchQuery != "id=eq.c1&status=eq.ringing" {
		t.Fatalf("expected patch conditioned on id and read status, got %q", patchQuery)
	}
	if patchBody["status"] != "completed" || patchBody["duration"] != float64(12) {
		t.Fatalf("unexpected patch body: %v", patchBody)
	}
}

func TestSupabaseApplyStatus_StaleSkipsPatch(t *testing.T) {
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			t.Errorf("stale update must not patch")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c1","type":"sms","status":"delivered","twilio_sid":"SM1"}]`))
	})

	res, err := store.ApplyStatus(context.Background(), "SM1", StatusUpdate{Status: "sent"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", res.Outcome)
	}
}

func TestSupabaseApplyStatus_NotFound(t *testing.T) {
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	res, err := store.ApplyStatus(context.Background(), "SM404", StatusUpdate{Status: "sent"})
	if err != nil || res.Outcome != OutcomeNotFound {
		t.Fatalf("expected not found, got %+v %v", res, err)
	}
}

func TestSupabaseApplyStatus_RetriesOnConcurrentChange(t *testing.T) {
	reads := 0
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			reads++
			if reads == 1 {
				_, _ = w.Write([]byte(`[{"id":"c1","type":"sms","status":"queued","twilio_sid":"SM1"}]`))
				return
			}
			_, _ = w.Write([]byte(`[{"id":"c1","type":"sms","status":"sent","twilio_sid":"SM1"}]`))
		case http.MethodPatch:
			if r.URL.Query().Get("status") == "eq.queued" {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_, _ = w.Write([]byte(`[{"id":"c1","type":"sms","status":"delivered","twilio_sid":"SM1"}]`))
		}
	})

	res, err := store.ApplyStatus(context.Background(), "SM1", StatusUpdate{Status: "delivered"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reads != 2 || res.Outcome != OutcomeApplied || res.Previous.Status != "sent" {
		t.Fatalf("expected second attempt to apply over sent, got reads=%d %+v", reads, res)
	}
}

func TestSupabaseApplyStatus_BlankStatusMatchesNullOrEmpty(t *testing.T) {
	var patches []string
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"id":"c1","type":"sms","status":"","twilio_sid":"SM1"}]`))
		case http.MethodPatch:
			patches = append(patches, r.URL.Query().Get("or"))
			if r.URL.Query().Get("or") != "(status.is.null,status.eq.)" || r.URL.Query().Has("status") {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_, _ = w.Write([]byte(`[{"id":"c1","type":"sms","status":"sent","twilio_sid":"SM1"}]`))
		}
	})

	res, err := store.ApplyStatus(context.Background(), "SM1", StatusUpdate{Status: "sent"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Outcome != OutcomeApplied || len(patches) != 1 {
		t.Fatalf("expected a single matching patch, got %d patches %+v", len(patches), res)
	}
}

func TestSupabaseListCommunicationsByLead_Empty(t *testing.T) {
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lead_id") != "eq.l9" {
			t.Errorf("unexpected filter %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	out, err := store.ListCommunicationsByLead(context.Background(), "l9")
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("expected empty slice, got %#v %v", out, err)
	}
}
