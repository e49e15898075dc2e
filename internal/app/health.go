package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
	"github.com/shandysiswandi/minibank/internal/pkg/router"
)

type healthResponse struct {
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

func (healthResponse) Message() string { return "ok" }

// health pings postgres and redis and answers 503 when either is down.
func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.dbConn.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ping postgres", "error", err)
		return nil, goerror.NewBusiness("Postgres is unavailable", goerror.CodeUnavailable)
	}

	if err := a.cacheConn.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to ping redis", "error", err)
		return nil, goerror.NewBusiness("Redis is unavailable", goerror.CodeUnavailable)
	}

	return healthResponse{Postgres: "up", Redis: "up"}, nil
}
