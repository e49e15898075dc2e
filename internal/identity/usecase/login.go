package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type LoginInput struct {
	Username string `validate:"required,notblank"`
	Password string `validate:"required"`
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*entity.Auth, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	errCredential := goerror.NewRejection(goerror.KindMismatch, "Invalid username or password")

	user, err := s.repoUser.GetUserByUsername(ctx, in.Username)
	if errors.Is(err, goerror.ErrNotFound) {
		s.bcrypt.Verify(s.dummyHash, in.Password)
		slog.WarnContext(ctx, "login for unknown username", "username", in.Username)
		return nil, errCredential
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.bcrypt.Verify(user.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "login password mismatch", "username", user.Username)
		return nil, errCredential
	}

	return s.newAuth(ctx, *user)
}
