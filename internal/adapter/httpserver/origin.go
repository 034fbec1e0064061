package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin returns the CheckOrigin function of the socket upgrader.
// It allows empty origins (same-origin / non-browser clients), obs:// origins
// (OBS browser sources rendering the playout page) and the configured control
// surface origin. When isDevelopment is true, localhost origins are additionally allowed.
func NewCheckOrigin(allowedURL string, isDevelopment bool) func(r *http.Request) bool {
	allowedOrigin := extractOrigin(allowedURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		if strings.HasPrefix(origin, "obs://") {
			return true
		}

		if allowedOrigin != "" && strings.EqualFold(origin, allowedOrigin) {
			return true
		}

		if isSameHost(origin, r.Host) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isSameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
