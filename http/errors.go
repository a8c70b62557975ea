package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"travel/entity"
)

// withDomainErrors translates domain errors into HTTP errors before the default handler renders
// them.
func withDomainErrors(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		next(toHTTPError(err), c)
	}
}

func toHTTPError(err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var gatewayErr *entity.GatewayError
	if errors.As(err, &gatewayErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, gatewayErr.Error()).SetInternal(err)
	}

	code := statusCode(err)
	if code == 0 {
		return err
	}

	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation),
		errors.Is(err, entity.ErrInvalidAmount),
		errors.Is(err, entity.ErrInvalidState),
		errors.Is(err, entity.ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return 0
	}
}
