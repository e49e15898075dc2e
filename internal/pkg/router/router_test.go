package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/config"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
	"github.com/shandysiswandi/minibank/internal/pkg/jwt"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
)

func newTestRouter(t *testing.T, yaml string) (*Router, *jwt.Symmetric) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	j, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("s", 64)),
		Issuer: "minibank",
		TTL:    time.Hour,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	return NewRouter(Config{Config: cfg, UUID: uid.NewUUID(), JWT: j}), j
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

type createdResp struct {
	Name string `json:"name"`
}

func (createdResp) StatusCode() int { return http.StatusCreated }
func (createdResp) Message() string { return "created" }

func TestRouter_OKEnvelope(t *testing.T) {
	r, _ := newTestRouter(t, "app: {}")
	r.POST("/api/v1/identity/register/otp", func(*Request) (any, error) {
		return createdResp{Name: "x"}, nil
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identity/register/otp", strings.NewReader(`{}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["message"] != "created" || body["data"].(map[string]any)["name"] != "x" {
		t.Fatalf("body = %v", body)
	}
	if rec.Header().Get(HeaderCorrelationID) == "" {
		t.Fatalf("correlation id header missing")
	}
}

func TestRouter_RateLimitedEnvelope(t *testing.T) {
	r, _ := newTestRouter(t, "app: {}")
	r.POST("/api/v1/identity/password/reset/:id/resend", func(*Request) (any, error) {
		return nil, goerror.NewRateLimited("too many codes", 1500*time.Millisecond)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identity/password/reset/abc/resend", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("retry-after = %q", rec.Header().Get("Retry-After"))
	}
	body := decode(t, rec)
	if body["kind"] != "RATE_LIMITED" || body["retry_after_seconds"] != float64(2) {
		t.Fatalf("body = %v", body)
	}
}

func TestRouter_UnknownErrorIsInternal(t *testing.T) {
	r, _ := newTestRouter(t, "app: {}")
	r.POST("/api/v1/identity/login", func(*Request) (any, error) {
		return nil, errors.New("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identity/login", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["kind"] != "INTERNAL" {
		t.Fatalf("body = %v", body)
	}
}

func TestRouter_Authentication(t *testing.T) {
	r, j := newTestRouter(t, "app: {}")
	r.POST("/api/v1/identity/password/change", func(req *Request) (any, error) {
		return map[string]string{"username": jwt.GetAuth(req.Context()).Username}, nil
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identity/password/change", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	if body := decode(t, rec); body["kind"] != "UNAUTHORIZED" {
		t.Fatalf("body = %v", body)
	}

	token, err := j.Generate("alice", "USER")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/identity/password/change", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if data := decode(t, rec)["data"].(map[string]any); data["username"] != "alice" {
		t.Fatalf("data = %v", data)
	}
}

func TestRouter_Maintenance(t *testing.T) {
	r, _ := newTestRouter(t, "app:\n  maintenance:\n    endpoints: /api/v1/identity/login\n")
	r.POST("/api/v1/identity/login", func(*Request) (any, error) { return "ok", nil })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/identity/login", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_RecoversPanic(t *testing.T) {
	r, _ := newTestRouter(t, "app: {}")
	r.GET("/health", func(*Request) (any, error) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_CorrelationIDEchoed(t *testing.T) {
	r, _ := newTestRouter(t, "app: {}")
	r.GET("/health", func(*Request) (any, error) { return nil, nil })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "  req-42 ")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(HeaderCorrelationID); got != "req-42" {
		t.Fatalf("cid = %q", got)
	}
}

func TestRequest_DecodeBody(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`))}
	if err := req.DecodeBody(&dst); err != nil || dst.Email != "a@b.c" {
		t.Fatalf("decode: %v %+v", err, dst)
	}

	for _, body := range []string{`{"unknown":1}`, `{"email":"x"}{}`, `not json`} {
		req := &Request{Request: httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))}
		if err := req.DecodeBody(&dst); goerror.KindOf(err) != goerror.KindValidation {
			t.Fatalf("body %q: err = %v", body, err)
		}
	}
}

func TestRealIP(t *testing.T) {
	trusted := parseProxies([]string{"10.0.0.0/8", "192.168.1.1", "not-an-ip"})

	tests := []struct {
		name   string
		remote string
		xff    string
		xrip   string
		want   string
	}{
		{"untrusted peer ignores headers", "203.0.113.9:4000", "1.2.3.4", "5.6.7.8", "203.0.113.9"},
		{"trusted peer uses forwarded client", "10.1.2.3:4000", "198.51.100.7", "", "198.51.100.7"},
		{"skips trusted hops from the right", "10.1.2.3:4000", "198.51.100.7, 10.9.9.9, 192.168.1.1", "", "198.51.100.7"},
		{"spoofed left entry loses to first untrusted hop", "10.1.2.3:4000", "1.1.1.1, 198.51.100.7", "", "198.51.100.7"},
		{"trusted peer falls back to x-real-ip", "192.168.1.1:80", "", "198.51.100.8", "198.51.100.8"},
		{"trusted peer without headers", "10.1.2.3:4000", "", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				r.Header.Set("X-Real-IP", tt.xrip)
			}

			if got := realIP(r, trusted); got != tt.want {
				t.Fatalf("realIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeCID(t *testing.T) {
	long := strings.Repeat("a", maxCIDLen+10)

	tests := []struct{ in, want string }{
		{" abc-1 ", "abc-1"},
		{"bad\r\nheader", ""},
		{"with space", ""},
		{"caf\u00e9", ""},
		{long, long[:maxCIDLen]},
	}
	for _, tt := range tests {
		if got := sanitizeCID(tt.in); got != tt.want {
			t.Fatalf("sanitizeCID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
