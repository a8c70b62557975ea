package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"travel/entity"
)

func (s Server) GetOpsBookings(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !entity.BookingStatus(status).Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter: "+status)
	}

	bookings, err := s.opsBookingsRepo.FindAll(c.Request().Context(), status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, bookings)
}

func (s Server) GetOpsBooking(c echo.Context) error {
	booking, err := s.opsBookingsRepo.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, booking)
}
