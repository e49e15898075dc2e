package app

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"os"

	"github.com/rs/cors"
	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/config"
	"github.com/shandysiswandi/minibank/internal/pkg/goroutine"
	"github.com/shandysiswandi/minibank/internal/pkg/hash"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/jwt"
	"github.com/shandysiswandi/minibank/internal/pkg/otp"
	"github.com/shandysiswandi/minibank/internal/pkg/router"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
	"github.com/shandysiswandi/minibank/internal/pkg/validator"
)

// fatal logs msg and terminates the process. Only used while wiring.
func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

// configPath resolves CONFIG_PATH, then LOCAL, then the container default.
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig() {
	path := configPath()
	cfg, err := config.NewViper(path)
	if err != nil {
		fatal("failed to load config", "path", path, "error", err)
	}

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // best effort
		os.Setenv("TZ", tz)
	}

	a.config = cfg
	a.addCloser("config", func(context.Context) error { return cfg.Close() })
}

func (a *App) initInstrument() {
	c := a.config
	ins, err := instrument.New(a.ctx, instrument.Config{
		Enabled:          c.GetBool("instrument.enabled"),
		ServiceName:      c.GetString("instrument.service_name"),
		ServiceVersion:   c.GetString("instrument.service_version"),
		Environment:      c.GetString("instrument.env"),
		OTLPEndpoint:     c.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       c.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: c.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  c.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       c.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		fatal("failed to init instrumentation", "error", err)
	}

	a.ins = ins
	a.addCloser("instrument", ins.Shutdown)
}

func (a *App) initLibraries() {
	c := a.config

	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.oid = uid.NewOpaque()
	a.otpGen = otp.NewNumericGenerator(rand.Reader)
	a.goroutine = goroutine.NewManager(c.GetInt("app.server.max_goroutine"))
	a.bcrypt = hash.NewBcrypt(c.GetInt("hash.bcrypt.cost"), c.GetString("hash.bcrypt.pepper"))
	a.argon2id = hash.NewArgon2id(c.GetString("hash.argon2id.pepper"), hash.WithArgon2idCost(
		c.GetUint32("hash.argon2id.memory_kib"),
		c.GetUint32("hash.argon2id.iterations"),
		uint8(min(c.GetUint("hash.argon2id.parallelism"), 255)),
	))

	v, err := validator.NewV10Validator()
	if err != nil {
		fatal("failed to init validator", "error", err)
	}
	a.validator = v

	snow, err := uid.NewSnowflake(c.GetInt64("app.node_id"))
	if err != nil {
		fatal("failed to init snowflake", "node_id", c.GetInt64("app.node_id"), "error", err)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	j, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		fatal("failed to init jwt", "error", err)
	}

	a.jwt = j
}

func (a *App) initHTTPServer() {
	c := a.config

	a.router = router.NewRouter(router.Config{
		Config:         c,
		UUID:           a.uuid,
		JWT:            a.jwt,
		Instrument:     a.ins,
		TrustedProxies: c.GetArray("app.server.trusted_proxies"),
	})
	a.router.GET("/health", a.health)

	handler := cors.New(cors.Options{
		AllowedOrigins:   c.GetArray("app.server.cors"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Retry-After", "X-Correlation-ID"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              c.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       c.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: c.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      c.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       c.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}
