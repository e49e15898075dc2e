package inbound

import (
	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/identity/usecase"
	"github.com/shandysiswandi/minibank/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for registration and password workflows.
type HTTPEndpoint struct {
	uc uc
}

func newAuthResponse(a *entity.Auth) AuthResponse {
	return AuthResponse{
		Token:    a.Token,
		Username: a.Username,
		Role:     a.Role.String(),
		Email:    a.Email,
		FullName: a.FullName,
	}
}

// Login authenticates a user by username and password.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return newAuthResponse(resp), nil
}

// RegisterOTPRequest stores a pending registration and mails its code.
// Calling it again for the same username resends a code.
func (h *HTTPEndpoint) RegisterOTPRequest(r *router.Request) (any, error) {
	var req RegisterOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RegisterOTPRequest(r.Context(), usecase.RegisterOTPRequestInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return RegisterOTPResponse{
		Username:  resp.Username,
		Email:     resp.Email,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// RegisterOTPVerify checks the code and creates the account.
func (h *HTTPEndpoint) RegisterOTPVerify(r *router.Request) (any, error) {
	var req RegisterVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RegisterOTPVerify(r.Context(), usecase.RegisterOTPVerifyInput{
		Username: req.Username,
		Email:    req.Email,
		Code:     req.Code,
	})
	if err != nil {
		return nil, err
	}

	return RegisterVerifyResponse{AuthResponse: newAuthResponse(resp)}, nil
}

func (h *HTTPEndpoint) PasswordResetLookup(r *router.Request) (any, error) {
	var req PasswordResetLookupRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.PasswordResetLookup(r.Context(), usecase.PasswordResetLookupInput{Email: req.Email})
	if err != nil {
		return nil, err
	}

	return PasswordResetLookupResponse{Email: resp.Email, Username: resp.Username}, nil
}

func (h *HTTPEndpoint) PasswordResetStart(r *router.Request) (any, error) {
	var req PasswordResetStartRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.PasswordResetStart(r.Context(), usecase.PasswordResetStartInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return nil, err
	}

	return PasswordResetStartResponse{
		RequestID: resp.RequestID,
		Username:  resp.Username,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// PasswordResetResend takes no body; the request id comes from the path.
func (h *HTTPEndpoint) PasswordResetResend(r *router.Request) (any, error) {
	resp, err := h.uc.PasswordResetResend(r.Context(), usecase.PasswordResetResendInput{
		RequestID: r.GetParam("id"),
	})
	if err != nil {
		return nil, err
	}

	return PasswordResetResendResponse{ExpiresAt: resp.ExpiresAt}, nil
}

func (h *HTTPEndpoint) PasswordResetConfirm(r *router.Request) (any, error) {
	var req PasswordResetConfirmRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.PasswordResetConfirm(r.Context(), usecase.PasswordResetConfirmInput{
		RequestID: r.GetParam("id"),
		Code:      req.Code,
	})
	if err != nil {
		return nil, err
	}

	return PasswordResetConfirmResponse{AuthResponse: newAuthResponse(resp)}, nil
}

// PasswordChange updates the password of the authenticated user.
func (h *HTTPEndpoint) PasswordChange(r *router.Request) (any, error) {
	var req PasswordChangeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordChange(r.Context(), usecase.PasswordChangeInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return nil, nil
}
