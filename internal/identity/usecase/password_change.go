package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/minibank/internal/pkg/authz"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type PasswordChangeInput struct {
	OldPassword string `validate:"required,notblank"`
	NewPassword string `validate:"required,notblank,password"`
}

func (s *Usecase) PasswordChange(ctx context.Context, in PasswordChangeInput) error {
	ctx, span := s.startSpan(ctx, "PasswordChange")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, authz.ObjectAccountPassword, authz.ActionUpdate)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := s.repoUser.GetUserByUsername(ctx, clm.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "username", clm.Username)
		return goerror.NewRejection(goerror.KindNotFound, "Account not found")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", clm.Username, "error", err)
		return goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.PasswordHash, in.OldPassword) {
		slog.WarnContext(ctx, "old password mismatch", "username", user.Username)
		return goerror.NewRejection(goerror.KindMismatch, "Invalid password")
	}

	if s.bcrypt.Verify(user.PasswordHash, in.NewPassword) {
		return goerror.NewRejection(goerror.KindConflict, "New password must differ from the current one")
	}

	newHash, err := s.bcrypt.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "username", user.Username, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoUser.UpdateUserPassword(ctx, user.Username, string(newHash)); err != nil {
		slog.ErrorContext(ctx, "failed to update user password", "username", user.Username, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
