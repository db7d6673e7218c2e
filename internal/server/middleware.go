package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"athletics-registry/internal/models"
	"athletics-registry/internal/policy"
	"athletics-registry/internal/session"
)

const identityKey = "identity"

// JWT validates the Authorization header and puts the identity on both the
// echo context and the request context.
func JWT(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			id, _, err := session.ParseToken(key, token)
			if err != nil {
				if errors.Is(err, session.ErrInvalidToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			c.Set(identityKey, id)
			req := c.Request()
			c.SetRequest(req.WithContext(policy.WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

func identityOf(c echo.Context) (models.Identity, bool) {
	id, ok := c.Get(identityKey).(models.Identity)
	return id, ok
}
