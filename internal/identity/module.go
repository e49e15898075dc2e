package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/minibank/internal/identity/inbound"
	"github.com/shandysiswandi/minibank/internal/identity/outbound/cache"
	"github.com/shandysiswandi/minibank/internal/identity/outbound/db"
	"github.com/shandysiswandi/minibank/internal/identity/outbound/mq"
	"github.com/shandysiswandi/minibank/internal/identity/outbound/notify"
	"github.com/shandysiswandi/minibank/internal/identity/usecase"
	"github.com/shandysiswandi/minibank/internal/pkg/authz"
	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/config"
	"github.com/shandysiswandi/minibank/internal/pkg/goroutine"
	"github.com/shandysiswandi/minibank/internal/pkg/hash"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/jwt"
	"github.com/shandysiswandi/minibank/internal/pkg/mail"
	"github.com/shandysiswandi/minibank/internal/pkg/messaging"
	"github.com/shandysiswandi/minibank/internal/pkg/otp"
	"github.com/shandysiswandi/minibank/internal/pkg/router"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
	"github.com/shandysiswandi/minibank/internal/pkg/validator"
)

const (
	SecretStorePostgres = "postgres"
	SecretStoreRedis    = "redis"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  *redis.Client              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Authorizer authz.Authorizer           `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Argon2ID   hash.Hash                  `validate:"required"`
	Generator  otp.Generator              `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

type secretStore interface {
	UpdatePendingRegistration(ctx context.Context, username string, fn usecase.PendingRegistrationFunc) error
	UpdatePasswordResetByEmail(ctx context.Context, email string, fn usecase.PasswordResetFunc) error
	UpdatePasswordReset(ctx context.Context, id string, fn usecase.PasswordResetFunc) error
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbIdentity := db.NewDB(dep.DBConn, dep.Instrument)

	secrets, err := newSecretStore(dep, dbIdentity)
	if err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoUser:      dbIdentity,
		RepoSecret:    secrets,
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument, dep.UUID, dep.Clock),
		Notifier: notify.New(dep.Mail, dep.Instrument, notify.Config{
			AppName: dep.Config.GetString("app.name"),
			Retries: uint64(max(dep.Config.GetInt("modules.identity.notify.retries"), 0)),
			Backoff: time.Duration(dep.Config.GetInt64("modules.identity.notify.backoff_ms")) * time.Millisecond,
		}),
		Validator:  dep.Validator,
		Config:     dep.Config,
		Bcrypt:     dep.Bcrypt,
		Argon2ID:   dep.Argon2ID,
		Generator:  dep.Generator,
		UID:        dep.UID,
		OID:        dep.OID,
		Clock:      dep.Clock,
		JWT:        dep.JWT,
		Instrument: dep.Instrument,
		Authorizer: dep.Authorizer,
		Goroutine:  dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

// newSecretStore picks where pending registrations and password resets live
// from modules.identity.secret_store.driver. Users always live in postgres.
func newSecretStore(dep Dependency, pg *db.DB) (secretStore, error) {
	switch driver := dep.Config.GetString("modules.identity.secret_store.driver"); driver {
	case "", SecretStorePostgres:
		return pg, nil
	case SecretStoreRedis:
		return cache.NewStore(dep.CacheConn, dep.Instrument, dep.OID, cache.Config{
			Retention: dep.Config.GetSecond("modules.identity.secret_store.redis.retention_seconds"),
			LockTTL:   dep.Config.GetSecond("modules.identity.secret_store.redis.lock_ttl_seconds"),
			LockWait:  dep.Config.GetSecond("modules.identity.secret_store.redis.lock_wait_seconds"),
		}), nil
	default:
		return nil, fmt.Errorf("identity: unknown secret store driver %q", driver)
	}
}
