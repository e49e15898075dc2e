package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix = "identity:"

	defaultRetention = time.Hour
	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second

	// txRetries bounds replays of a write whose watched keys changed.
	txRetries = 4
)

// ErrLockTimeout is returned when a record stays locked longer than the
// configured wait.
var ErrLockTimeout = errors.New("cache: timed out waiting for record lock")

var errLockHeld = errors.New("cache: record lock held")

type Config struct {
	// Retention is the TTL stored records carry. It must outlive the resend
	// window and code lifetime.
	Retention time.Duration
	// LockTTL bounds how long a crashed holder can keep a record locked.
	LockTTL time.Duration
	// LockWait is how long an update waits for a busy record.
	LockWait time.Duration
}

// Store keeps pending registrations and password resets in redis. Every
// update holds a per-record lock while it reads the record and runs the
// callback once; the resulting write is a WATCH/MULTI transaction replayed
// when an email index it touches changes underneath it.
type Store struct {
	client *redis.Client
	ins    instrument.Instrumentation
	token  uid.StringID
	cfg    Config
}

func NewStore(client *redis.Client, ins instrument.Instrumentation, token uid.StringID, cfg Config) *Store {
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}

	return &Store{client: client, ins: ins, token: token, cfg: cfg}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func (s *Store) endSpan(span trace.Span, err error) {
	if err != nil && goerror.KindOf(err) == goerror.KindNone && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lock takes the lock guarding key and returns its release func.
func (s *Store) lock(ctx context.Context, key string) (func(), error) {
	lockKey := key + ":lock"
	token := s.token.Generate()

	b := retry.WithMaxDuration(s.cfg.LockWait,
		retry.WithCappedDuration(50*time.Millisecond, retry.NewExponential(2*time.Millisecond)))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		ok, err := s.client.SetNX(ctx, lockKey, token, s.cfg.LockTTL).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errLockHeld)
		}
		return nil
	})
	if errors.Is(err, errLockHeld) {
		return nil, ErrLockTimeout
	}
	if err != nil {
		return nil, err
	}

	return func() {
		// release only if the lock is still ours
		ctx := context.WithoutCancel(ctx)
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			owner, err := tx.Get(ctx, lockKey).Result()
			if err != nil || owner != token {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, lockKey)
				return nil
			})
			return err
		}, lockKey)
		if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) {
			slog.WarnContext(ctx, "failed to release record lock", "key", lockKey, "error", err)
		}
	}, nil
}

// watch runs f in a WATCH transaction over keys and replays it when a
// watched key changed before EXEC. f must only read and write redis; the
// record callback has already run by then.
func (s *Store) watch(ctx context.Context, f func(tx *redis.Tx) error, keys ...string) error {
	b := retry.WithMaxRetries(txRetries, retry.NewExponential(5*time.Millisecond))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.client.Watch(ctx, f, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			slog.DebugContext(ctx, "watched key changed, retrying", "keys", keys)
			return retry.RetryableError(err)
		}
		return err
	})
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getJSON decodes key into out and reports whether the key existed.
func getJSON(ctx context.Context, c getter, key string, out any) (bool, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// claimIndex watches idx and fails with goerror.ErrConflict when it already
// points at a different owner.
func claimIndex(ctx context.Context, tx *redis.Tx, idx, owner string) error {
	if err := tx.Watch(ctx, idx).Err(); err != nil {
		return err
	}

	current, err := tx.Get(ctx, idx).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	if current != owner {
		return goerror.ErrConflict
	}
	return nil
}
