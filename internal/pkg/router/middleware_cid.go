package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
)

const (
	// HeaderCorrelationID is set on every response and read first on requests.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted when the caller did not send a correlation id.
	HeaderRequestID = "X-Request-ID"

	maxCIDLen = 128
)

var correlationHeaders = []string{HeaderCorrelationID, HeaderRequestID}

// sanitizeCID drops values carrying anything but visible ASCII and truncates
// the rest. The value is echoed into a response header and log lines.
func sanitizeCID(v string) string {
	v = strings.TrimSpace(v)
	if strings.IndexFunc(v, func(c rune) bool { return c < '!' || c > '~' }) >= 0 {
		return ""
	}
	if len(v) > maxCIDLen {
		return v[:maxCIDLen]
	}
	return v
}

func correlationID(r *http.Request, gen uid.StringID) string {
	for _, h := range correlationHeaders {
		if cid := sanitizeCID(r.Header.Get(h)); cid != "" {
			return cid
		}
	}
	if gen == nil {
		return ""
	}
	return gen.Generate()
}

func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := correlationID(r, gen)
			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}
			next.ServeHTTP(w, r)
		})
	}
}
