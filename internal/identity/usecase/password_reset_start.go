package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type PasswordResetStartInput struct {
	Email       string `validate:"required,notblank,email"`
	NewPassword string `validate:"required,notblank,max=72"`
}

type PasswordResetStartOutput struct {
	RequestID string
	Username  string
	ExpiresAt time.Time
}

func (s *Usecase) PasswordResetStart(ctx context.Context, in PasswordResetStartInput) (*PasswordResetStartOutput, error) {
	ctx, span := s.startSpan(ctx, "PasswordResetStart")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoUser.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user not found by email", "email", in.Email)
		return nil, goerror.NewRejection(goerror.KindNotFound, "No account registered with this email")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	newHash, err := s.bcrypt.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "username", user.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	var (
		code string
		out  PasswordResetStartOutput
	)
	err = s.repoSecret.UpdatePasswordResetByEmail(ctx, in.Email,
		func(ctx context.Context, rec *entity.PasswordReset, exists bool) (entity.Mutation, error) {
			now := s.clock.Now()

			next, c, err := s.resetPolicy.Issue(rec.OTPState(), now)
			if err != nil {
				return entity.MutationNone, issueFailed(ctx, in.Email, err)
			}

			// one active request per email; a second start resumes it
			if !exists {
				rec.ID = s.oid.Generate()
				rec.Email = in.Email
			}
			rec.Username = user.Username
			rec.NewPasswordHash = string(newHash)
			rec.SetOTPState(next)

			code = c
			out = PasswordResetStartOutput{RequestID: rec.ID, Username: rec.Username, ExpiresAt: next.ExpiresAt}
			return entity.MutationSave, nil
		})
	if err != nil {
		return nil, s.secretStoreError(ctx, entity.PurposePasswordReset, in.Email, err)
	}

	if err := s.sendOTP(ctx, in.Email, code, entity.PurposePasswordReset); err != nil {
		return nil, err
	}

	return &out, nil
}
