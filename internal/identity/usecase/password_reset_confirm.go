package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type PasswordResetConfirmInput struct {
	RequestID string `validate:"required,notblank"`
	Code      string `validate:"required,notblank,max=16"`
}

// PasswordResetConfirm checks the code, stores the new password and logs the
// user in.
func (s *Usecase) PasswordResetConfirm(ctx context.Context, in PasswordResetConfirmInput) (*entity.Auth, error) {
	ctx, span := s.startSpan(ctx, "PasswordResetConfirm")
	defer span.End()

	in.RequestID = strings.TrimSpace(in.RequestID)
	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var user *entity.User
	err := s.repoSecret.UpdatePasswordReset(ctx, in.RequestID,
		func(ctx context.Context, rec *entity.PasswordReset, exists bool) (entity.Mutation, error) {
			now := s.clock.Now()

			if !exists {
				slog.WarnContext(ctx, "password reset not found", "request_id", in.RequestID)
				return entity.MutationNone, goerror.NewRejection(goerror.KindNotFound, "Reset request not found")
			}

			next, changed, err := s.resetPolicy.Verify(rec.OTPState(), in.Code, now)
			if err != nil {
				if changed {
					rec.SetOTPState(next)
					return entity.MutationSave, err
				}
				return entity.MutationNone, err
			}

			u, err := s.repoUser.GetUserByUsername(ctx, rec.Username)
			if errors.Is(err, goerror.ErrNotFound) {
				slog.WarnContext(ctx, "user of password reset no longer exists", "username", rec.Username)
				return entity.MutationDelete, goerror.NewRejection(goerror.KindNotFound, "Account not found")
			}
			if err != nil {
				slog.ErrorContext(ctx, "failed to repo get user by username", "username", rec.Username, "error", err)
				return entity.MutationNone, goerror.NewServer(err)
			}

			if err := s.repoUser.UpdateUserPassword(ctx, u.Username, rec.NewPasswordHash); err != nil {
				slog.ErrorContext(ctx, "failed to repo update user password", "username", u.Username, "error", err)
				return entity.MutationNone, goerror.NewServer(err)
			}

			u.PasswordHash = rec.NewPasswordHash
			user = u
			return entity.MutationDelete, nil
		})
	if err != nil {
		return nil, s.secretStoreError(ctx, entity.PurposePasswordReset, in.RequestID, err)
	}

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		return s.repoMessaging.PublishPasswordResetCompleted(ctx, PasswordResetCompletedEvent{
			Username: user.Username,
			Email:    user.Email,
		})
	})

	return s.newAuth(ctx, *user)
}
