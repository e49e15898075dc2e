package usecase

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/minibank/internal/identity/entity"
	"github.com/shandysiswandi/minibank/internal/pkg/authz"
	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
	"github.com/shandysiswandi/minibank/internal/pkg/goroutine"
	"github.com/shandysiswandi/minibank/internal/pkg/hash"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/jwt"
	"github.com/shandysiswandi/minibank/internal/pkg/otp"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
	"github.com/shandysiswandi/minibank/internal/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]entity.User
	err   error
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeUsers) CreateUser(_ context.Context, user entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return goerror.ErrConflict
		}
	}
	f.users[user.Username] = user
	return nil
}

func (f *fakeUsers) UpdateUserPassword(_ context.Context, username, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.users[username]
	if !ok {
		return goerror.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.users[username] = u
	return nil
}

func (f *fakeUsers) get(username string) (entity.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	return u, ok
}

// fakeSecrets serialises every update behind one mutex, which is the
// per-key atomicity the real stores give.
type fakeSecrets struct {
	mu      sync.Mutex
	pending map[string]entity.PendingRegistration
	resets  map[string]entity.PasswordReset

	// locked runs once the record lock is held, before the callback.
	locked func()
}

func (f *fakeSecrets) acquired() {
	if f.locked != nil {
		f.locked()
	}
}

func (f *fakeSecrets) UpdatePendingRegistration(ctx context.Context, username string, fn PendingRegistrationFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired()

	rec, exists := f.pending[username]
	mut, err := fn(ctx, &rec, exists)
	switch mut {
	case entity.MutationSave:
		for k, p := range f.pending {
			if k != username && p.Email == rec.Email {
				return goerror.ErrConflict
			}
		}
		f.pending[username] = rec
	case entity.MutationDelete:
		delete(f.pending, username)
	}
	return err
}

func (f *fakeSecrets) UpdatePasswordResetByEmail(ctx context.Context, email string, fn PasswordResetFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired()

	var (
		rec    entity.PasswordReset
		exists bool
	)
	for _, r := range f.resets {
		if r.Email == email {
			rec, exists = r, true
			break
		}
	}
	return f.apply(ctx, rec, exists, fn)
}

func (f *fakeSecrets) UpdatePasswordReset(ctx context.Context, id string, fn PasswordResetFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired()

	rec, exists := f.resets[id]
	return f.apply(ctx, rec, exists, fn)
}

func (f *fakeSecrets) apply(ctx context.Context, rec entity.PasswordReset, exists bool, fn PasswordResetFunc) error {
	mut, err := fn(ctx, &rec, exists)
	switch mut {
	case entity.MutationSave:
		f.resets[rec.ID] = rec
	case entity.MutationDelete:
		delete(f.resets, rec.ID)
	}
	return err
}

func (f *fakeSecrets) pendingOf(username string) (entity.PendingRegistration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[username]
	return p, ok
}

func (f *fakeSecrets) resetOf(id string) (entity.PasswordReset, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resets[id]
	return r, ok
}

type sentOTP struct {
	destination string
	code        string
	purpose     entity.Purpose
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (f *fakeNotifier) SendOTP(_ context.Context, destination, code string, purpose entity.Purpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentOTP{destination: destination, code: code, purpose: purpose})
	return nil
}

func (f *fakeNotifier) last(t *testing.T) sentOTP {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("no code was sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeMessaging struct {
	mu         sync.Mutex
	registered []UserRegisteredEvent
	resets     []PasswordResetCompletedEvent
}

func (f *fakeMessaging) PublishUserRegistered(_ context.Context, msg UserRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, msg)
	return nil
}

func (f *fakeMessaging) PublishPasswordResetCompleted(_ context.Context, msg PasswordResetCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, msg)
	return nil
}

type seqID struct {
	n atomic.Int64
}

func (s *seqID) Generate() int64 {
	return s.n.Add(1)
}

type fixedUUID struct{}

func (fixedUUID) Generate() string { return "0197a1b2-0000-7000-8000-000000000001" }

type harness struct {
	uc       *Usecase
	users    *fakeUsers
	secrets  *fakeSecrets
	notifier *fakeNotifier
	events   *fakeMessaging
	clock    *clock.Manual
	jwt      *jwt.Symmetric
	gr       *goroutine.Manager
	bcrypt   hash.Hash
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	clk := clock.NewManual(t0)
	j, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("s", 64)),
		Issuer:    "minibank",
		Audiences: []string{"minibank"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      fixedUUID{},
	})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	enforcer, err := authz.NewStatic(authz.DefaultPolicies...)
	if err != nil {
		t.Fatalf("authz: %v", err)
	}

	h := &harness{
		users:    &fakeUsers{users: map[string]entity.User{}},
		secrets:  &fakeSecrets{pending: map[string]entity.PendingRegistration{}, resets: map[string]entity.PasswordReset{}},
		notifier: &fakeNotifier{},
		events:   &fakeMessaging{},
		clock:    clk,
		jwt:      j,
		gr:       goroutine.NewManager(16),
		bcrypt:   hash.NewBcrypt(bcrypt.MinCost, "pepper"),
	}

	h.uc = New(Dependency{
		RepoUser:      h.users,
		RepoSecret:    h.secrets,
		RepoMessaging: h.events,
		Notifier:      h.notifier,
		Validator:     v,
		Bcrypt:        h.bcrypt,
		Argon2ID:      hash.NewArgon2id("pepper", hash.WithArgon2idCost(1024, 1, 1)),
		Generator:     otp.NewNumericGenerator(rand.Reader),
		UID:           &seqID{},
		OID:           uid.NewOpaque(),
		Clock:         clk,
		JWT:           j,
		Instrument:    instrument.NewNoop(),
		Authorizer:    enforcer,
		Goroutine:     h.gr,
	})

	return h
}

// seedUser stores a user whose password is password.
func (h *harness) seedUser(t *testing.T, username, email, password string) entity.User {
	t.Helper()
	hashed, err := h.bcrypt.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := entity.User{
		ID:           int64(len(h.users.users) + 1000),
		Username:     username,
		Email:        email,
		FullName:     strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: string(hashed),
		Role:         entity.RoleUser,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	h.users.users[username] = u
	return u
}

func mustKind(t *testing.T, err error, want goerror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got := goerror.KindOf(err); got != want {
		t.Fatalf("kind = %s, want %s (err=%v)", got, want, err)
	}
}

// wrongCode never matches because issued codes start at 100000.
const wrongCode = "000000"
