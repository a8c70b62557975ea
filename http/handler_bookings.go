package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"travel/entity"
)

type postBookingActivity struct {
	ActivityID  string     `json:"activity_id"`
	GuideID     *string    `json:"guide_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type postBookingRequest struct {
	PackageID  *string               `json:"package_id"`
	Activities []postBookingActivity `json:"activities"`
	StartDate  time.Time             `json:"start_date"`
	EndDate    time.Time             `json:"end_date"`
	Notes      *string               `json:"notes"`
}

type patchBookingRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Notes     *string    `json:"notes"`
}

func (s Server) PostBooking(c echo.Context) error {
	var request postBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	items := make([]entity.LineItemRequest, 0, len(request.Activities))
	for _, a := range request.Activities {
		items = append(items, entity.LineItemRequest{
			ActivityID:  a.ActivityID,
			GuideID:     a.GuideID,
			ScheduledAt: a.ScheduledAt,
		})
	}

	booking, err := s.ledger.CreateBooking(c.Request().Context(), actor(c), entity.NewBookingParams{
		Items:     items,
		PackageID: request.PackageID,
		StartDate: request.StartDate,
		EndDate:   request.EndDate,
		Notes:     request.Notes,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newBookingResponse(booking))
}

func (s Server) GetBooking(c echo.Context) error {
	booking, err := s.ledger.GetBooking(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newBookingResponse(booking))
}

func (s Server) PatchBooking(c echo.Context) error {
	var request patchBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	booking, err := s.ledger.UpdateBooking(c.Request().Context(), actor(c), c.Param("id"), entity.BookingUpdate{
		StartDate: request.StartDate,
		EndDate:   request.EndDate,
		Notes:     request.Notes,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newBookingResponse(booking))
}

func (s Server) PostCancelBooking(c echo.Context) error {
	booking, err := s.ledger.CancelBooking(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newBookingResponse(booking))
}

func (s Server) GetPaymentSummary(c echo.Context) error {
	summary, err := s.ledger.PaymentSummary(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newPaymentSummaryResponse(summary))
}
