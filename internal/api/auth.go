package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"labdesk/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	permReadDashboard     = "read:dashboard"
	permWriteDecisions    = "write:decisions"
	clientKeyUnknown      = "unknown"
)

var (
	errMissingHeaders   = errors.New("missing api key headers")
	errInvalidAPIKey    = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

type clientCtxKey struct{}

// ClientFromContext returns the authenticated API client, if any.
func ClientFromContext(ctx context.Context) (config.APIClientKey, bool) {
	client, ok := ctx.Value(clientCtxKey{}).(config.APIClientKey)
	return client, ok
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			client, err := a.checkAuth(r)
			if err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), clientCtxKey{}, client))
		}

		if a.limiter.enabled() && !a.limiter.getLimiter(a.clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) apiKeyHeader() string {
	if h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey)); h != "" {
		return h
	}
	return apiKeyHeaderDefault
}

func (a *HTTPAuth) extraHeader() string {
	if h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderExtra)); h != "" {
		return h
	}
	return apiExtraHeaderDefault
}

func (a *HTTPAuth) checkAuth(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	extra := strings.TrimSpace(r.Header.Get(a.extraHeader()))
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingHeaders
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}

	if err := checkPermissions(client, requiredPermission(r)); err != nil {
		return config.APIClientKey{}, err
	}
	return client, nil
}

// checkPermissions treats an empty permission list as allow-all.
func checkPermissions(client config.APIClientKey, required string) error {
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/api/v1/sessions") {
		return ""
	}
	if r.Method == http.MethodPost && (strings.HasSuffix(path, "/approve") || strings.HasSuffix(path, "/reject")) {
		return permWriteDecisions
	}
	return permReadDashboard
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}
