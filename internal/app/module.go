package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/minibank/internal/identity"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			OID:        a.oid,
			Bcrypt:     a.bcrypt,
			Argon2ID:   a.argon2id,
			Generator:  a.otpGen,
			Clock:      a.clock,
			Validator:  a.validator,
			Router:     a.router,
			DBConn:     a.dbConn,
			CacheConn:  a.cacheConn,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Goroutine:  a.goroutine,
			JWT:        a.jwt,
			Authorizer: a.authorizer,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}
}
