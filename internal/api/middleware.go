package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"
)

var errPermissionDenied = errors.New("permission denied")

// accessLog writes one line per request and feeds the HTTP metrics.
func accessLog(logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			dur := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			code := c.Response().Status
			metrics.ObserveHTTP(route, code, dur)

			logger.Info().
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("route", route).
				Int("status", code).
				Dur("duration", dur).
				Msg("http request")
			return nil
		}
	}
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

func (a *HTTPAuth) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/healthz" {
				return next(c)
			}

			if a.cfg.Auth.Enabled {
				if err := a.checkAuth(c.Request()); err != nil {
					code := http.StatusUnauthorized
					if errors.Is(err, errPermissionDenied) {
						code = http.StatusForbidden
					}
					return echo.NewHTTPError(code, err.Error())
				}
			}

			if !a.limiter.allow(a.clientKey(c)) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func (a *HTTPAuth) apiKeyHeader() string {
	h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if h == "" {
		return apiKeyHeaderDefault
	}
	return h
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	extraHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	extra := strings.TrimSpace(r.Header.Get(extraHeader))
	if apiKey == "" || extra == "" {
		return errors.New("missing api key headers")
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return errors.New("invalid api key")
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errors.New("invalid extra header")
	}

	return checkPermissions(client, requiredPermissionHTTP(r))
}

// requiredPermissionHTTP maps a request onto the permission names also used by gRPC.
func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/bookings") {
		return ""
	}
	if r.Method == http.MethodGet {
		return permReadBookings
	}
	return permWriteBookings
}

// clientKey is the API key when present, then the caller, then the remote address.
func (a *HTTPAuth) clientKey(c echo.Context) string {
	if apiKey := strings.TrimSpace(c.Request().Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}
	if id, ok := c.Get(ctxUserID).(int64); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return clientKeyUnknown
}
