package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type PasswordResetResendInput struct {
	RequestID string `validate:"required,notblank"`
}

type PasswordResetResendOutput struct {
	ExpiresAt time.Time
}

// PasswordResetResend sends a fresh code for an existing request. The new
// password chosen at start cannot be changed here.
func (s *Usecase) PasswordResetResend(ctx context.Context, in PasswordResetResendInput) (*PasswordResetResendOutput, error) {
	ctx, span := s.startSpan(ctx, "PasswordResetResend")
	defer span.End()

	in.RequestID = strings.TrimSpace(in.RequestID)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var (
		code, email string
		expiresAt   time.Time
	)
	err := s.repoSecret.UpdatePasswordReset(ctx, in.RequestID,
		func(ctx context.Context, rec *entity.PasswordReset, exists bool) (entity.Mutation, error) {
			now := s.clock.Now()

			if !exists {
				slog.WarnContext(ctx, "password reset not found", "request_id", in.RequestID)
				return entity.MutationNone, goerror.NewRejection(goerror.KindNotFound, "Reset request not found")
			}

			next, c, err := s.resetPolicy.Issue(rec.OTPState(), now)
			if err != nil {
				return entity.MutationNone, issueFailed(ctx, in.RequestID, err)
			}
			rec.SetOTPState(next)

			code, email, expiresAt = c, rec.Email, next.ExpiresAt
			return entity.MutationSave, nil
		})
	if err != nil {
		return nil, s.secretStoreError(ctx, entity.PurposePasswordReset, in.RequestID, err)
	}

	if err := s.sendOTP(ctx, email, code, entity.PurposePasswordReset); err != nil {
		return nil, err
	}

	return &PasswordResetResendOutput{ExpiresAt: expiresAt}, nil
}
