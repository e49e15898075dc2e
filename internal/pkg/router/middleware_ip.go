package router

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// proxies holds the networks whose forwarding headers are believed. An empty
// set means the peer address is always used.
type proxies []*net.IPNet

func parseProxies(cidrs []string) proxies {
	return lo.FilterMap(cidrs, func(c string, _ int) (*net.IPNet, bool) {
		if !strings.Contains(c, "/") {
			if ip := net.ParseIP(c); ip != nil && ip.To4() != nil {
				c += "/32"
			} else {
				c += "/128"
			}
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy", "value", c, "error", err)
			return nil, false
		}
		return n, true
	})
}

func (p proxies) trusts(ip net.IP) bool {
	return lo.SomeBy(p, func(n *net.IPNet) bool { return n.Contains(ip) })
}

func middlewareIP(trusted proxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rip := realIP(r, trusted); rip != "" {
				r.RemoteAddr = rip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// realIP returns the client address. Forwarding headers count only when the
// peer is a trusted proxy; X-Forwarded-For is walked right to left and the
// first untrusted hop wins.
func realIP(r *http.Request, trusted proxies) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil {
		return ""
	}
	if !trusted.trusts(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !trusted.trusts(ip) {
				return ip.String()
			}
		}
	}

	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}

	return peer.String()
}
