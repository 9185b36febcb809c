package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"

	"deskhub/internal/config"

	"golang.org/x/time/rate"
)

type contextKey int

const identityKey contextKey = iota

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID int64
	Name   string
	scopes []string
}

// Allowed reports whether the identity's token carries the scope. A key
// configured without scopes may do everything.
func (id *Identity) Allowed(scope string) bool {
	if len(id.scopes) == 0 {
		return true
	}
	for _, s := range id.scopes {
		if strings.TrimSpace(s) == scope {
			return true
		}
	}
	return false
}

func identityFrom(r *http.Request) *Identity {
	id, _ := r.Context().Value(identityKey).(*Identity)
	return id
}

// Auth authenticates requests by API key pair and applies a per-key rate
// limit.
type Auth struct {
	cfg       config.AuthConfig
	rateLimit config.RateLimitConfig
	clients   map[string]config.APIClientKey
	limiters  sync.Map // api key (or peer host) -> *rate.Limiter
}

func NewAuth(cfg config.AuthConfig, rateLimit config.RateLimitConfig) *Auth {
	clients := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		clients[k.Key] = k
	}
	return &Auth{cfg: cfg, rateLimit: rateLimit, clients: clients}
}

// Wrap authenticates the request and stores the caller identity in the
// request context.
func (a *Auth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.checkRateLimit(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		identity, ok := a.identify(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (a *Auth) identify(r *http.Request) (*Identity, bool) {
	apiKey := strings.TrimSpace(r.Header.Get(a.cfg.HeaderAPIKey))
	extra := strings.TrimSpace(r.Header.Get(a.cfg.HeaderExtra))
	if apiKey == "" || extra == "" {
		return nil, false
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return nil, false
	}

	return &Identity{UserID: client.UserID, Name: client.Name, scopes: client.Scopes}, true
}

func (a *Auth) checkRateLimit(r *http.Request) bool {
	if a.rateLimit.RPS <= 0 {
		return true
	}
	return a.getLimiter(a.limiterKey(r)).Allow()
}

func (a *Auth) limiterKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.cfg.HeaderAPIKey)); apiKey != "" {
		return apiKey
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *Auth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.rateLimit.Burst
	if burst <= 0 {
		burst = 5
	}
	lim := rate.NewLimiter(rate.Limit(a.rateLimit.RPS), burst)
	if actual, loaded := a.limiters.LoadOrStore(key, lim); loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

// requireScope rejects the request when the caller's token lacks the
// scope. With auth disabled there is no identity and nothing to check.
func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	identity := identityFrom(r)
	if identity == nil {
		return true
	}
	if !identity.Allowed(scope) {
		writeError(w, http.StatusForbidden, "missing scope "+scope)
		return false
	}
	return true
}
