package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type RegisterOTPRequestInput struct {
	Username string `validate:"required,notblank,max=50"`
	FullName string `validate:"required,notblank,max=100"`
	Email    string `validate:"required,notblank,email,max=254"`
	Password string `validate:"required,notblank,max=72"`
}

type RegisterOTPRequestOutput struct {
	Username  string
	Email     string
	ExpiresAt time.Time
}

func (s *Usecase) RegisterOTPRequest(ctx context.Context, in RegisterOTPRequestInput) (*RegisterOTPRequestOutput, error) {
	ctx, span := s.startSpan(ctx, "RegisterOTPRequest")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	passwordHash, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	var (
		code      string
		expiresAt time.Time
	)
	err = s.repoSecret.UpdatePendingRegistration(ctx, in.Username,
		func(ctx context.Context, rec *entity.PendingRegistration, _ bool) (entity.Mutation, error) {
			now := s.clock.Now()

			next, c, err := s.registrationPolicy.Issue(rec.OTPState(), now)
			if err != nil {
				return entity.MutationNone, issueFailed(ctx, in.Username, err)
			}

			// a resend may carry corrected profile data
			rec.Username = in.Username
			rec.FullName = in.FullName
			rec.Email = in.Email
			rec.PasswordHash = string(passwordHash)
			rec.SetOTPState(next)

			code, expiresAt = c, next.ExpiresAt
			return entity.MutationSave, nil
		})
	if err != nil {
		return nil, s.secretStoreError(ctx, entity.PurposeRegistration, in.Username, err)
	}

	if err := s.sendOTP(ctx, in.Email, code, entity.PurposeRegistration); err != nil {
		return nil, err
	}

	return &RegisterOTPRequestOutput{
		Username:  in.Username,
		Email:     in.Email,
		ExpiresAt: expiresAt,
	}, nil
}
