// Package gateway forwards verified requests to the upstream services. It is
// a transparent forwarder: method, body and query string pass through, only
// the path prefix is rewritten for the target service.
package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	"go.uber.org/zap"
)

type Upstream struct {
	Name      string
	Target    *url.URL
	Prefix    string // gateway-facing prefix, e.g. /api/chat
	Rewrite   string // upstream path prefix, e.g. /chat
	Protected bool
}

// UpstreamsFromConfig builds the routing table. Auth is reachable without a
// token (it is where tokens come from); everything else sits behind the
// bearer check.
func UpstreamsFromConfig(cfg *config.Config) ([]Upstream, error) {
	entries := []struct {
		name      string
		rawURL    string
		protected bool
	}{
		{"auth", cfg.AuthServiceURL, false},
		{"core", cfg.CoreServiceURL, true},
		{"chat", cfg.ChatServiceURL, true},
		{"analytics", cfg.AnalyticsServiceURL, true},
		{"notifications", cfg.NotificationsServiceURL, true},
	}

	upstreams := make([]Upstream, 0, len(entries))
	for _, e := range entries {
		target, err := url.Parse(e.rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse %s upstream url %q: %w", e.name, e.rawURL, err)
		}
		upstreams = append(upstreams, Upstream{
			Name:      e.name,
			Target:    target,
			Prefix:    "/api/" + e.name,
			Rewrite:   "/" + e.name,
			Protected: e.protected,
		})
	}
	return upstreams, nil
}

// ProxyHandler serves one upstream. Timeouts and connection failures both
// yield 503; the gateway never retries, callers own that decision.
func ProxyHandler(u Upstream, timeout time.Duration, log *zap.Logger) gin.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(u.Target)

	proxy.Director = func(req *http.Request) {
		req.URL.Scheme = u.Target.Scheme
		req.URL.Host = u.Target.Host
		req.Host = u.Target.Host
		req.URL.Path = u.Rewrite + strings.TrimPrefix(req.URL.Path, u.Prefix)
	}

	proxy.Transport = &http.Transport{
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		ResponseHeaderTimeout: timeout,
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("upstream unavailable",
			zap.String("service", u.Name),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"error":%q}`, u.Name+" service unavailable")
	}

	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
