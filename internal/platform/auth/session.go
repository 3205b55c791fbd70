// Package auth issues and verifies the short-lived operator sessions the
// record API runs under. Tokens are HS256 JWTs carrying the operator's
// department and doctor codes, which scope which visits they may edit.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/omr/omr/internal/platform/apperr"
)

type sessionKey struct{}

// Session identifies the signed-in operator.
type Session struct {
	Login    string   `json:"login"`
	Name     string   `json:"name"`
	DeptCode string   `json:"dept_code"`
	DocCode  string   `json:"doc_code"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the session carries a role. Admin implies all.
func (s *Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role || r == "admin" {
			return true
		}
	}
	return false
}

// SessionClaims is the JWT payload.
type SessionClaims struct {
	jwt.RegisteredClaims
	Session
}

// IssueToken signs a session token valid for ttl.
func IssueToken(secret []byte, session Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Session: session,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a session token and returns its session.
func ParseToken(secret []byte, token string) (*Session, error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims.Session, nil
}

// Middleware verifies the bearer token and stores the session in the
// request context. Any failure is the same 401 envelope; clients treat it
// as an expired session and re-login.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return apperr.ErrAuthExpired
			}
			session, err := ParseToken(secret, token)
			if err != nil {
				return apperr.ErrAuthExpired
			}
			ctx := context.WithValue(c.Request().Context(), sessionKey{}, session)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// SessionFromContext returns the session stored by Middleware, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// RequireRoles refuses requests whose session lacks every listed role.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := SessionFromContext(c.Request().Context())
			if session == nil {
				return apperr.ErrAuthExpired
			}
			for _, role := range roles {
				if session.HasRole(role) {
					return next(c)
				}
			}
			return apperr.ErrForbidden
		}
	}
}
