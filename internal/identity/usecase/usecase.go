package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/authz"
	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/config"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
	"github.com/shandysiswandi/minibank/internal/pkg/goroutine"
	"github.com/shandysiswandi/minibank/internal/pkg/hash"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/jwt"
	"github.com/shandysiswandi/minibank/internal/pkg/otp"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
	"github.com/shandysiswandi/minibank/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type UserRegisteredEvent struct {
	UserID   int64
	Username string
	Email    string
	FullName string
}

type PasswordResetCompletedEvent struct {
	Username string
	Email    string
}

type repoMessaging interface {
	PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error
	PublishPasswordResetCompleted(ctx context.Context, msg PasswordResetCompletedEvent) error
}

type repoUser interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user entity.User) error
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
}

// PendingRegistrationFunc is run by the store under the record's lock. rec is
// zero valued when exists is false. The returned mutation is applied even when
// the error is non-nil. Repository calls made by fn must use ctx so they share
// the store's transaction; their writes are kept only when fn returns nil.
type PendingRegistrationFunc func(ctx context.Context, rec *entity.PendingRegistration, exists bool) (entity.Mutation, error)

// PasswordResetFunc is the PasswordReset counterpart of PendingRegistrationFunc.
type PasswordResetFunc func(ctx context.Context, rec *entity.PasswordReset, exists bool) (entity.Mutation, error)

type repoSecret interface {
	UpdatePendingRegistration(ctx context.Context, username string, fn PendingRegistrationFunc) error
	UpdatePasswordResetByEmail(ctx context.Context, email string, fn PasswordResetFunc) error
	UpdatePasswordReset(ctx context.Context, id string, fn PasswordResetFunc) error
}

type notifier interface {
	SendOTP(ctx context.Context, destination, code string, purpose entity.Purpose) error
}

type Usecase struct {
	repoUser      repoUser
	repoSecret    repoSecret
	repoMessaging repoMessaging
	notifier      notifier
	validator     validator.Validator
	bcrypt        hash.Hash
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	metrics       *instrument.OTPMetrics
	authorizer    authz.Authorizer
	goroutine     *goroutine.Manager

	registrationPolicy *otp.Policy
	resetPolicy        *otp.Policy
	dummyHash          string
}

type Dependency struct {
	RepoUser      repoUser
	RepoSecret    repoSecret
	RepoMessaging repoMessaging
	Notifier      notifier
	Validator     validator.Validator
	Config        config.Config
	Bcrypt        hash.Hash
	Argon2ID      hash.Hash
	Generator     otp.Generator
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Authorizer    authz.Authorizer
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	metrics, err := instrument.NewOTPMetrics(dep.Instrument.Meter("identity.usecase"))
	if err != nil {
		slog.Warn("failed to register otp metrics", "error", err)
	}

	cfg := otpConfig(dep.Config)

	s := &Usecase{
		repoUser:           dep.RepoUser,
		repoSecret:         dep.RepoSecret,
		repoMessaging:      dep.RepoMessaging,
		notifier:           dep.Notifier,
		validator:          dep.Validator,
		bcrypt:             dep.Bcrypt,
		uid:                dep.UID,
		oid:                dep.OID,
		clock:              dep.Clock,
		jwt:                dep.JWT,
		ins:                dep.Instrument,
		metrics:            metrics,
		authorizer:         dep.Authorizer,
		goroutine:          dep.Goroutine,
		registrationPolicy: otp.NewPolicy(cfg.WithoutCooldown(), dep.Generator, dep.Argon2ID),
		resetPolicy:        otp.NewPolicy(cfg, dep.Generator, dep.Argon2ID),
	}

	// Login compares against this when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	if h, err := dep.Bcrypt.Hash(dep.OID.Generate()); err == nil {
		s.dummyHash = string(h)
	} else {
		slog.Warn("failed to prepare login dummy hash", "error", err)
	}

	return s
}

// otpConfig reads modules.identity.otp.*; missing or non-positive values fall
// back to otp.DefaultConfig.
func otpConfig(cfg config.Config) otp.Config {
	def := otp.DefaultConfig()
	if cfg == nil {
		return def
	}

	out := otp.Config{
		TTL:          cfg.GetSecond("modules.identity.otp.ttl_seconds"),
		MaxAttempts:  cfg.GetInt("modules.identity.otp.max_attempts"),
		ResendWindow: cfg.GetSecond("modules.identity.otp.resend_window_seconds"),
		MaxResends:   cfg.GetInt("modules.identity.otp.max_resends"),
		Cooldown:     cfg.GetSecond("modules.identity.otp.reset_cooldown_seconds"),
	}
	if out.Cooldown <= 0 {
		out.Cooldown = def.Cooldown
	}

	return out
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.authorizer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "username", clm.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}

// ensureAvailable fails with Conflict when username or email belongs to a user.
func (s *Usecase) ensureAvailable(ctx context.Context, username, email string) error {
	_, err := s.repoUser.GetUserByUsername(ctx, username)
	if err == nil {
		slog.WarnContext(ctx, "username already registered", "username", username)
		return goerror.NewRejection(goerror.KindConflict, "Username already registered")
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", username, "error", err)
		return goerror.NewServer(err)
	}

	_, err = s.repoUser.GetUserByEmail(ctx, email)
	if err == nil {
		slog.WarnContext(ctx, "email already registered", "email", email)
		return goerror.NewRejection(goerror.KindConflict, "Email already registered")
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

// issueFailed converts a non-rejection error from otp.Policy.Issue, which
// means code generation or hashing broke.
func issueFailed(ctx context.Context, key string, err error) error {
	if goerror.KindOf(err) != goerror.KindNone {
		return err
	}
	slog.ErrorContext(ctx, "failed to issue otp", "key", key, "error", err)
	return goerror.NewServer(err)
}

// secretStoreError turns the error of a secret store update into the caller
// facing error. Errors raised by the callback are already *goerror.Error and
// pass through; rejections are counted.
func (s *Usecase) secretStoreError(ctx context.Context, purpose entity.Purpose, key string, err error) error {
	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		if gerr.Kind() != goerror.KindNone {
			s.metrics.Rejected(ctx, purpose.String(), gerr.Kind().String())
		}
		return err
	}

	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "secret store unique conflict", "purpose", purpose, "key", key)
		s.metrics.Rejected(ctx, purpose.String(), goerror.KindConflict.String())
		return goerror.NewRejection(goerror.KindConflict, "Email already has a request in progress")
	}

	slog.ErrorContext(ctx, "failed to repo update secret", "purpose", purpose, "key", key, "error", err)
	return goerror.NewServer(err)
}

func (s *Usecase) sendOTP(ctx context.Context, destination, code string, purpose entity.Purpose) error {
	s.metrics.Issued(ctx, purpose.String())

	if err := s.notifier.SendOTP(ctx, destination, code, purpose); err != nil {
		slog.ErrorContext(ctx, "failed to send otp", "purpose", purpose, "destination", destination, "error", err)
		s.metrics.Rejected(ctx, purpose.String(), goerror.KindDelivery.String())
		return goerror.NewDelivery(err, "Failed to send the verification code, request a new one")
	}

	return nil
}

func (s *Usecase) newAuth(ctx context.Context, user entity.User) (*entity.Auth, error) {
	token, err := s.jwt.Generate(user.Username, user.Role.String())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate token", "username", user.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &entity.Auth{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
	}, nil
}
