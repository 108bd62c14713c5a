package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/orgstack/tenant-auth/internal/api/handler"
	"github.com/orgstack/tenant-auth/internal/core/domain"
)

// ProfileResolver resolves an Authorization header value to a stored user.
// ports.SessionService satisfies it.
type ProfileResolver interface {
	GetProfile(ctx context.Context, authorization string) (*domain.UserSummary, error)
}

// Auth validates the access token in the Authorization header and injects
// the subject into the echo context. Rejections are returned as domain
// errors so the central error handler renders them uniformly.
func Auth(sessions ProfileResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrMissingToken
			}

			user, err := sessions.GetProfile(c.Request().Context(), authHeader)
			if err != nil {
				return err
			}

			c.Set(handler.CtxUserID, user.ID)
			c.Set(handler.CtxEmail, user.Email)
			c.Set(handler.CtxRole, user.Role)

			return next(c)
		}
	}
}
