package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/identity/usecase"
	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/config"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
	"github.com/shandysiswandi/minibank/internal/pkg/jwt"
	"github.com/shandysiswandi/minibank/internal/pkg/router"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
)

var expiresAt = time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

type fakeUC struct {
	registerIn usecase.RegisterOTPRequestInput
	confirmIn  usecase.PasswordResetConfirmInput
	resendIn   usecase.PasswordResetResendInput
	changeIn   usecase.PasswordChangeInput
	changeUser string
	err        error
}

func (f *fakeUC) auth(username string) *entity.Auth {
	return &entity.Auth{Token: "tok", Username: username, Role: entity.RoleUser, Email: username + "@example.com", FullName: "Full Name"}
}

func (f *fakeUC) Login(_ context.Context, in usecase.LoginInput) (*entity.Auth, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.auth(in.Username), nil
}

func (f *fakeUC) RegisterOTPRequest(_ context.Context, in usecase.RegisterOTPRequestInput) (*usecase.RegisterOTPRequestOutput, error) {
	f.registerIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.RegisterOTPRequestOutput{Username: in.Username, Email: in.Email, ExpiresAt: expiresAt}, nil
}

func (f *fakeUC) RegisterOTPVerify(_ context.Context, in usecase.RegisterOTPVerifyInput) (*entity.Auth, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.auth(in.Username), nil
}

func (f *fakeUC) PasswordResetLookup(_ context.Context, in usecase.PasswordResetLookupInput) (*usecase.PasswordResetLookupOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.PasswordResetLookupOutput{Email: in.Email, Username: "bob"}, nil
}

func (f *fakeUC) PasswordResetStart(_ context.Context, _ usecase.PasswordResetStartInput) (*usecase.PasswordResetStartOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.PasswordResetStartOutput{RequestID: "req-1", Username: "bob", ExpiresAt: expiresAt}, nil
}

func (f *fakeUC) PasswordResetResend(_ context.Context, in usecase.PasswordResetResendInput) (*usecase.PasswordResetResendOutput, error) {
	f.resendIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.PasswordResetResendOutput{ExpiresAt: expiresAt}, nil
}

func (f *fakeUC) PasswordResetConfirm(_ context.Context, in usecase.PasswordResetConfirmInput) (*entity.Auth, error) {
	f.confirmIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.auth("bob"), nil
}

func (f *fakeUC) PasswordChange(ctx context.Context, in usecase.PasswordChangeInput) error {
	f.changeIn = in
	if clm := jwt.GetAuth(ctx); clm != nil {
		f.changeUser = clm.Username
	}
	return f.err
}

func newTestServer(t *testing.T, f *fakeUC) (*router.Router, *jwt.Symmetric) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app: {}"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	j, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("k", 64)),
		Issuer: "minibank",
		TTL:    time.Hour,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), JWT: j})
	RegisterHTTPEndpoint(r, f)
	return r, j
}

func do(t *testing.T, h http.Handler, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestRegisterOTPRequest(t *testing.T) {
	f := &fakeUC{}
	h, _ := newTestServer(t, f)

	rec, body := do(t, h, "/api/v1/identity/register/otp",
		`{"username":"alice","full_name":"Alice Doe","email":"alice@example.com","password":"secret1"}`, "")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if f.registerIn.Username != "alice" || f.registerIn.FullName != "Alice Doe" || f.registerIn.Password != "secret1" {
		t.Fatalf("input = %+v", f.registerIn)
	}
	data := body["data"].(map[string]any)
	if data["email"] != "alice@example.com" || data["expires_at"] != "2026-03-01T10:05:00Z" {
		t.Fatalf("data = %v", data)
	}
}

func TestRegisterOTPRequest_UnknownField(t *testing.T) {
	h, _ := newTestServer(t, &fakeUC{})

	rec, body := do(t, h, "/api/v1/identity/register/otp", `{"username":"alice","admin":true}`, "")
	if rec.Code != http.StatusBadRequest || body["kind"] != "VALIDATION" {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
}

func TestRegisterOTPVerify(t *testing.T) {
	h, _ := newTestServer(t, &fakeUC{})

	rec, body := do(t, h, "/api/v1/identity/register/verify", `{"username":"alice","email":"alice@example.com","code":"123456"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	data := body["data"].(map[string]any)
	if data["token"] != "tok" || data["role"] != "USER" || data["full_name"] != "Full Name" {
		t.Fatalf("data = %v", data)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"locked", goerror.NewRejection(goerror.KindLocked, "locked"), http.StatusLocked, "LOCKED"},
		{"expired", goerror.NewRejection(goerror.KindExpired, "expired"), http.StatusGone, "EXPIRED"},
		{"invalid code", goerror.NewRejection(goerror.KindInvalidCode, "bad"), http.StatusUnauthorized, "INVALID_CODE"},
		{"delivery", goerror.NewDelivery(nil, "mail down"), http.StatusServiceUnavailable, "DELIVERY"},
		{"not found", goerror.NewRejection(goerror.KindNotFound, "missing"), http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, &fakeUC{err: tt.err})

			rec, body := do(t, h, "/api/v1/identity/password/reset/req-1/confirm", `{"code":"123456"}`, "")
			if rec.Code != tt.status || body["kind"] != tt.kind {
				t.Fatalf("status = %d body = %v", rec.Code, body)
			}
		})
	}
}

func TestPasswordReset_PathParam(t *testing.T) {
	f := &fakeUC{}
	h, _ := newTestServer(t, f)

	rec, _ := do(t, h, "/api/v1/identity/password/reset/req-9/resend", "", "")
	if rec.Code != http.StatusOK || f.resendIn.RequestID != "req-9" {
		t.Fatalf("status = %d input = %+v", rec.Code, f.resendIn)
	}

	rec, body := do(t, h, "/api/v1/identity/password/reset/req-9/confirm", `{"code":"654321"}`, "")
	if rec.Code != http.StatusOK || f.confirmIn.RequestID != "req-9" || f.confirmIn.Code != "654321" {
		t.Fatalf("status = %d body = %v input = %+v", rec.Code, body, f.confirmIn)
	}
}

func TestPasswordResetResend_RateLimited(t *testing.T) {
	h, _ := newTestServer(t, &fakeUC{err: goerror.NewRateLimited("slow down", 30*time.Second)})

	rec, body := do(t, h, "/api/v1/identity/password/reset/req-1/resend", "", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("status = %d retry-after = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if body["retry_after_seconds"] != float64(30) {
		t.Fatalf("body = %v", body)
	}
}

func TestPasswordChange_RequiresToken(t *testing.T) {
	f := &fakeUC{}
	h, j := newTestServer(t, f)

	rec, _ := do(t, h, "/api/v1/identity/password/change", `{"old_password":"secret1","new_password":"secret2"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}

	token, err := j.Generate("alice", "USER")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	rec, _ = do(t, h, "/api/v1/identity/password/change", `{"old_password":"secret1","new_password":"secret2"}`, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.changeUser != "alice" || f.changeIn.NewPassword != "secret2" {
		t.Fatalf("user = %q input = %+v", f.changeUser, f.changeIn)
	}
}
