package inbound

import (
	"net/http"
	"time"
)

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterOTPRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterOTPResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (RegisterOTPResponse) StatusCode() int { return http.StatusAccepted }

func (RegisterOTPResponse) Message() string {
	return "Verification code sent. Please check your email."
}

type RegisterVerifyRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Code     string `json:"code"`
}

type RegisterVerifyResponse struct {
	AuthResponse
}

func (RegisterVerifyResponse) StatusCode() int { return http.StatusCreated }

func (RegisterVerifyResponse) Message() string {
	return "Registration completed."
}

type PasswordResetLookupRequest struct {
	Email string `json:"email"`
}

type PasswordResetLookupResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

type PasswordResetStartRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type PasswordResetStartResponse struct {
	RequestID string    `json:"request_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (PasswordResetStartResponse) StatusCode() int { return http.StatusAccepted }

func (PasswordResetStartResponse) Message() string {
	return "Password reset code sent. Please check your email."
}

type PasswordResetResendResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (PasswordResetResendResponse) Message() string {
	return "A new password reset code has been sent."
}

type PasswordResetConfirmRequest struct {
	Code string `json:"code"`
}

type PasswordResetConfirmResponse struct {
	AuthResponse
}

func (PasswordResetConfirmResponse) Message() string {
	return "Password has been reset."
}

type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
