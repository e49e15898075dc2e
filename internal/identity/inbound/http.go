package inbound

import (
	"context"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/identity/usecase"
	"github.com/shandysiswandi/minibank/internal/pkg/router"
)

type uc interface {
	Login(ctx context.Context, in usecase.LoginInput) (*entity.Auth, error)

	RegisterOTPRequest(ctx context.Context, in usecase.RegisterOTPRequestInput) (*usecase.RegisterOTPRequestOutput, error)
	RegisterOTPVerify(ctx context.Context, in usecase.RegisterOTPVerifyInput) (*entity.Auth, error)

	PasswordResetLookup(ctx context.Context, in usecase.PasswordResetLookupInput) (*usecase.PasswordResetLookupOutput, error)
	PasswordResetStart(ctx context.Context, in usecase.PasswordResetStartInput) (*usecase.PasswordResetStartOutput, error)
	PasswordResetResend(ctx context.Context, in usecase.PasswordResetResendInput) (*usecase.PasswordResetResendOutput, error)
	PasswordResetConfirm(ctx context.Context, in usecase.PasswordResetConfirmInput) (*entity.Auth, error)
	PasswordChange(ctx context.Context, in usecase.PasswordChangeInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/identity/login", end.Login)

	// Registration
	r.POST("/api/v1/identity/register/otp", end.RegisterOTPRequest)
	r.POST("/api/v1/identity/register/verify", end.RegisterOTPVerify)

	// Password Management
	r.POST("/api/v1/identity/password/reset/lookup", end.PasswordResetLookup)
	r.POST("/api/v1/identity/password/reset", end.PasswordResetStart)
	r.POST("/api/v1/identity/password/reset/:id/resend", end.PasswordResetResend)
	r.POST("/api/v1/identity/password/reset/:id/confirm", end.PasswordResetConfirm)
	r.POST("/api/v1/identity/password/change", end.PasswordChange) // need authenticated
}
