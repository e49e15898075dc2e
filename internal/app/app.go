package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
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

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	argon2id  hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	oid       uid.StringID
	uuid      uid.StringID
	otpGen    otp.Generator
	jwt       jwt.JWT

	// resources
	dbConn     *pgxpool.Pool
	cacheConn  *redis.Client
	mail       mail.Mail
	messaging  messaging.Messaging
	authorizer authz.Authorizer

	// server
	router     *router.Router
	httpServer *http.Server

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New wires every dependency. Any failure is fatal. Resources are released by
// Stop, which runs when the parent ctx is done.
func New(parent context.Context) *App {
	ctx, cancel := context.WithCancel(parent)
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initMigration()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initAuthorizer()
	app.initHTTPServer()
	app.initModules()

	return app
}
