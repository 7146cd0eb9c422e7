package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// sign computes X-Twilio-Signature the way Twilio does: HMAC-SHA1 over the
// URL followed by each sorted key and its value.
func sign(token, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhook/twilio", RequireSignature("tok", "https://gw.example.com/"), func(c *gin.Context) {
		cb, err := ParseStatusCallback(c.Request)
		if err != nil {
			c.AbortWithStatus(http.StatusUnprocessableEntity)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sid": cb.SID()})
	})
	return r
}

func TestRequireSignature_Form(t *testing.T) {
	r := signedRouter()

	params := url.Values{}
	params.Set("CallSid", "CA1")
	params.Set("CallStatus", "ringing")
	good := sign("tok", "https://gw.example.com/api/webhook/twilio", params)

	send := func(body, sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/twilio", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Twilio-Signature", sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(params.Encode(), good); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send(params.Encode(), "bogus"); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := send(params.Encode(), ""); code != http.StatusForbidden {
		t.Fatalf("expected 403 without signature, got %d", code)
	}

	tampered := url.Values{}
	tampered.Set("CallSid", "CA1")
	tampered.Set("CallStatus", "completed")
	if code := send(tampered.Encode(), good); code != http.StatusForbidden {
		t.Fatalf("expected 403 for tampered params, got %d", code)
	}
}

func TestRequireSignature_JSONSignedOverURLOnlyIsRejected(t *testing.T) {
	r := signedRouter()

	body := `{"CallSid":"CA1","CallStatus":"completed"}`
	sig := sign("tok", "https://gw.example.com/api/webhook/twilio", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/twilio", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Twilio-Signature", sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireSignature_JSONWithBodyHash(t *testing.T) {
	r := signedRouter()

	body := `{"CallSid":"CA1","CallStatus":"completed"}`
	sum := sha256.Sum256([]byte(body))
	path := "/api/webhook/twilio?bodySHA256=" + hex.EncodeToString(sum[:])
	sig := sign("tok", "https://gw.example.com"+path, nil)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Twilio-Signature", sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"sid":"CA1"`) {
		t.Fatalf("expected handler to re-read the body: %s", w.Body.String())
	}

	if w := send(`{"CallSid":"CA2","CallStatus":"completed"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for swapped body, got %d", w.Code)
	}
}
