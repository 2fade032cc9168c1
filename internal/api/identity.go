package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	defaultUserHeader = "X-Sharer-User-Id"
	ctxUserID         = "user_id"
)

// identity resolves the calling user either from the sharer header set by
// the gateway or from the subject of an HS256 bearer token.
type identity struct {
	header string
	secret []byte
}

func newIdentity(header, secret string) identity {
	if strings.TrimSpace(header) == "" {
		header = defaultUserHeader
	}
	return identity{header: header, secret: []byte(secret)}
}

func (i identity) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			headerID, hasHeader, err := i.headerUser(c)
			if err != nil {
				return err
			}

			// A verified token outranks the header; a header naming someone
			// else is refused.
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(i.secret) > 0 && strings.HasPrefix(auth, "Bearer ") {
				id, err := i.subject(strings.TrimPrefix(auth, "Bearer "))
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				if hasHeader && headerID != id {
					return domain.ErrAccessDenied
				}
				c.Set(ctxUserID, id)
				return next(c)
			}

			if hasHeader {
				c.Set(ctxUserID, headerID)
			}
			return next(c)
		}
	}
}

func (i identity) headerUser(c echo.Context) (int64, bool, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(i.header))
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, domain.Invalid(fmt.Sprintf("invalid %s header", i.header))
	}
	return id, true, nil
}

func (i identity) subject(raw string) (int64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("unexpected claims type %T", tok.Claims)
	}
	switch sub := claims["sub"].(type) {
	case string:
		return strconv.ParseInt(sub, 10, 64)
	case float64:
		return int64(sub), nil
	default:
		return 0, fmt.Errorf("missing sub claim")
	}
}

// userID returns the caller resolved by the identity middleware.
func (s *HTTPServer) userID(c echo.Context) (int64, error) {
	if id, ok := c.Get(ctxUserID).(int64); ok {
		return id, nil
	}
	return 0, domain.Invalid(fmt.Sprintf("missing %s header", s.identity.header))
}
