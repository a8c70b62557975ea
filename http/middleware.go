package http

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"travel/entity"
)

const actorKey = "actor"

func (s Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return fmt.Errorf("%w: missing bearer token", entity.ErrUnauthenticated)
		}

		userID, err := s.sessionTokens.Parse(token)
		if err != nil {
			return err
		}

		c.Set(actorKey, userID)
		return next(c)
	}
}

func (s Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		admin, err := s.authorization.IsAdmin(c.Request().Context(), actor(c))
		if err != nil {
			return err
		}
		if !admin {
			return entity.ErrForbidden
		}
		return next(c)
	}
}

func actor(c echo.Context) string {
	userID, _ := c.Get(actorKey).(string)
	return userID
}
