package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

type PasswordResetLookupInput struct {
	Email string `validate:"required,notblank,email"`
}

type PasswordResetLookupOutput struct {
	Email    string
	Username string
}

// PasswordResetLookup tells the caller which account an email belongs to.
// It is a discovery step, so an unknown email is reported as NotFound.
func (s *Usecase) PasswordResetLookup(ctx context.Context, in PasswordResetLookupInput) (*PasswordResetLookupOutput, error) {
	ctx, span := s.startSpan(ctx, "PasswordResetLookup")
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

	return &PasswordResetLookupOutput{Email: user.Email, Username: user.Username}, nil
}
