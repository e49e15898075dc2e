package router

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/shandysiswandi/minibank/internal/pkg/config"
	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

// middlewareMaintenance rejects the route patterns listed in
// app.maintenance.endpoints. The list is read on every request so a config
// reload takes effect without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg != nil && lo.Contains(cfg.GetArray("app.maintenance.endpoints"), matchedRoutePath(r)) {
				encodeError(w, goerror.NewBusiness("service is under maintenance", goerror.CodeUnavailable))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
