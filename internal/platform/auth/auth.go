// Package auth guards the operational API with HS256 bearer tokens. The
// conversational channel never passes through here; its callers are
// authenticated by the webhook signature instead.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const subjectKey = "auth_subject"

// Claims is the operational API token payload.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// IssueToken mints an operator token. Used by deploy tooling and tests.
func IssueToken(secret []byte, subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Middleware validates the bearer token and stashes the subject on the echo
// context. An empty secret rejects everything; running the operational API
// open is never an option.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			if len(secret) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "api auth not configured")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(subjectKey, claims.Subject)
			return next(c)
		}
	}
}

// Subject returns the authenticated operator subject, if any.
func Subject(c echo.Context) string {
	s, _ := c.Get(subjectKey).(string)
	return s
}
