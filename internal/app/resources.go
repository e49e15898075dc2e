package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/minibank/internal/identity/outbound/db"
	"github.com/shandysiswandi/minibank/internal/pkg/authz"
	"github.com/shandysiswandi/minibank/internal/pkg/mail"
	"github.com/shandysiswandi/minibank/internal/pkg/messaging"
)

const (
	pingTimeout    = 5 * time.Second
	migrateTimeout = 30 * time.Second
)

func (a *App) initDatabase() {
	c := a.config
	cfg, err := pgxpool.ParseConfig(c.GetString("database.url"))
	if err != nil {
		fatal("failed to parse database url", "error", err)
	}

	cfg.MaxConns = c.GetInt32("database.pool.max_conns")
	cfg.MinConns = c.GetInt32("database.pool.min_conns")
	cfg.MaxConnLifetime = c.GetSecond("database.pool.max_conn_lifetime_seconds")
	cfg.MaxConnIdleTime = c.GetSecond("database.pool.max_conn_idle_seconds")
	cfg.HealthCheckPeriod = c.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, cfg)
	if err != nil {
		fatal("failed to create database pool", "error", err)
	}

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		fatal("failed to ping database", "error", err)
	}

	a.dbConn = pool
	a.addCloser("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
}

func (a *App) initMigration() {
	if !a.config.GetBool("database.migrate") {
		return
	}

	ctx, cancel := context.WithTimeout(a.ctx, migrateTimeout)
	defer cancel()
	if err := db.Migrate(ctx, a.dbConn); err != nil {
		fatal("failed to migrate identity schema", "error", err)
	}
	slog.Info("identity schema migrated")
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		fatal("failed to parse redis url", "error", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal("failed to ping redis", "addr", opt.Addr, "error", err)
	}

	a.cacheConn = rdb
	a.addCloser("redis", func(context.Context) error { return rdb.Close() })
}

func (a *App) initMail() {
	m, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
	})
	if err != nil {
		fatal("failed to init mail", "error", err)
	}

	a.mail = m
	a.addCloser("mail", func(context.Context) error { return m.Close() })
}

func (a *App) natsOptions() []nats.Option {
	c := a.config
	return []nats.Option{
		nats.Name(c.GetString("messaging.nats.name")),
		nats.MaxReconnects(c.GetInt("messaging.nats.max_reconnects")),
		nats.Timeout(c.GetSecond("messaging.nats.timeout_seconds")),
		nats.ReconnectWait(c.GetSecond("messaging.nats.reconnect_wait_seconds")),
		nats.PingInterval(c.GetSecond("messaging.nats.ping_interval_seconds")),
		nats.MaxPingsOutstanding(c.GetInt("messaging.nats.max_pings_outstanding")),
		nats.RetryOnFailedConnect(c.GetBool("messaging.nats.retry_on_failed_connect")),
	}
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(driver, messaging.FactoryOptions{
		Kafka: messaging.KafkaConfig{Brokers: a.config.GetArray("messaging.kafka.brokers")},
		NATS:  messaging.NATSConfig{URL: a.config.GetString("messaging.nats.url"), Options: a.natsOptions()},
	})
	if err != nil {
		fatal("failed to init messaging", "driver", driver, "error", err)
	}

	a.messaging = client
	a.addCloser("messaging", func(context.Context) error { return client.Close() })
}

// initAuthorizer loads policies from postgres and falls back to the built-in
// defaults when the table is empty.
func (a *App) initAuthorizer() {
	e, err := authz.New(authz.NewPgxAdapter(a.dbConn, a.config.GetString("authz.table")))
	if errors.Is(err, authz.ErrNoPolicies) {
		slog.Warn("no authorization policies stored, using defaults")
		e, err = authz.NewStatic(authz.DefaultPolicies...)
	}
	if err != nil {
		fatal("failed to init authorizer", "error", err)
	}

	a.authorizer = e
}
