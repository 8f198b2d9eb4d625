package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/erilali/chatrelay/internal/logger"
)

// originPolicy decides which browser origins may open a chat connection or
// read the HTTP endpoints. "*" opens it to everyone.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	logger   *logger.Logger
}

func newOriginPolicy(origins []string, l *logger.Logger) *originPolicy {
	p := &originPolicy{allowed: make(map[string]struct{}), logger: l}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			p.allowAll = true
		default:
			normalized, ok := normalizeOrigin(trimmed)
			if !ok {
				l.Warnf("Ignoring invalid origin in configuration: %q", origin)
				continue
			}
			p.allowed[normalized] = struct{}{}
		}
	}
	return p
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// allows reports whether a request with the given Origin header may proceed.
// Requests without an Origin header come from non-browser clients and are
// always allowed.
func (p *originPolicy) allows(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, exists := p.allowed[normalized]
	return exists
}

func (p *originPolicy) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if p.allows(origin) {
		return true
	}
	p.logger.Warnf("Blocked WebSocket connection from disallowed origin: %q", origin)
	return false
}

// cors sets CORS response headers for allowed origins and answers preflight
// requests.
func (p *originPolicy) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && p.allows(origin) {
			if p.allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
