package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type RegisterOTPVerifyInput struct {
	Username string `validate:"required,notblank"`
	Email    string `validate:"required,notblank,email"`
	Code     string `validate:"required,notblank,max=16"`
}

func (s *Usecase) RegisterOTPVerify(ctx context.Context, in RegisterOTPVerifyInput) (*entity.Auth, error) {
	ctx, span := s.startSpan(ctx, "RegisterOTPVerify")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Code = strings.TrimSpace(in.Code)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var user entity.User
	err := s.repoSecret.UpdatePendingRegistration(ctx, in.Username,
		func(ctx context.Context, rec *entity.PendingRegistration, exists bool) (entity.Mutation, error) {
			now := s.clock.Now()

			if !exists {
				slog.WarnContext(ctx, "pending registration not found", "username", in.Username)
				return entity.MutationNone, goerror.NewRejection(goerror.KindNotFound, "Registration not found")
			}

			if rec.Email != in.Email {
				slog.WarnContext(ctx, "pending registration email mismatch", "username", in.Username)
				return entity.MutationNone, goerror.NewRejection(goerror.KindMismatch, "Email does not match the registration")
			}

			next, changed, err := s.registrationPolicy.Verify(rec.OTPState(), in.Code, now)
			if err != nil {
				if changed {
					rec.SetOTPState(next)
					return entity.MutationSave, err
				}
				return entity.MutationNone, err
			}

			// the availability check at request time may be stale by now
			if err := s.ensureAvailable(ctx, rec.Username, rec.Email); err != nil {
				return entity.MutationNone, err
			}

			user = entity.User{
				ID:           s.uid.Generate(),
				Username:     rec.Username,
				Email:        rec.Email,
				FullName:     rec.FullName,
				PasswordHash: rec.PasswordHash,
				Role:         entity.RoleUser,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repoUser.CreateUser(ctx, user); err != nil {
				if errors.Is(err, goerror.ErrConflict) {
					slog.WarnContext(ctx, "user created concurrently", "username", rec.Username)
					return entity.MutationNone, goerror.NewRejection(goerror.KindConflict, "Username or email already registered")
				}
				slog.ErrorContext(ctx, "failed to repo create user", "username", rec.Username, "error", err)
				return entity.MutationNone, goerror.NewServer(err)
			}

			return entity.MutationDelete, nil
		})
	if err != nil {
		return nil, s.secretStoreError(ctx, entity.PurposeRegistration, in.Username, err)
	}

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		return s.repoMessaging.PublishUserRegistered(ctx, UserRegisteredEvent{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			FullName: user.FullName,
		})
	})

	return s.newAuth(ctx, user)
}
