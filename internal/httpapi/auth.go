package httpapi

import (
	"encoding/base64"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/auth"
	"horse.fit/babel/internal/globaltime"
)

// requireBasicAuth guards the admin surface with HTTP basic auth checked
// against the bcrypt hash in babel.admin_users.
func (s *Server) requireBasicAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username, password, ok := basicCredentials(c.Request().Header.Get("Authorization"))
			if !ok {
				return unauthorizedResponse(c)
			}

			username = auth.NormalizeUsername(username)
			user, err := s.pool.GetAdminUserByUsername(c.Request().Context(), username)
			if err != nil {
				s.logger.Error().Err(err).Str("username", username).Msg("admin user lookup failed")
				return internalError(c, "Failed to authorize request")
			}
			if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
				return unauthorizedResponse(c)
			}

			if err := s.pool.TouchAdminUserLogin(c.Request().Context(), user.UserID, globaltime.UTC()); err != nil {
				s.logger.Warn().Err(err).Str("username", username).Msg("touch admin login failed")
			}

			c.Set("auth.username", user.Username)
			return next(c)
		}
	}
}

func basicCredentials(header string) (string, string, bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	username, password, found := strings.Cut(string(decoded), ":")
	if !found || username == "" {
		return "", "", false
	}
	return username, password, true
}
