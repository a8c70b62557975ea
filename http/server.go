package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"travel/entity"
	"travel/ledger"
	"travel/webhook"
)

type Ledger interface {
	CreateBooking(ctx context.Context, actor string, params entity.NewBookingParams) (entity.Booking, error)
	CancelBooking(ctx context.Context, actor string, bookingID string) (entity.Booking, error)
	UpdateBooking(ctx context.Context, actor string, bookingID string, update entity.BookingUpdate) (entity.Booking, error)
	GetBooking(ctx context.Context, actor string, bookingID string) (entity.Booking, error)
	PaymentSummary(ctx context.Context, actor string, bookingID string) (entity.PaymentSummary, error)

	CreatePayment(ctx context.Context, actor string, params entity.NewPaymentParams) (ledger.CreatedPayment, error)
	GetPayment(ctx context.Context, actor string, paymentID string) (entity.Payment, error)
	UpdatePaymentStatus(ctx context.Context, actor string, paymentID string, change ledger.PaymentStatusChange) (ledger.PaymentResult, error)
	Refund(ctx context.Context, actor string, paymentID string, request ledger.RefundRequest) (ledger.PaymentResult, error)
}

type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signatureHeader string) (webhook.Outcome, error)
}

type OpsBookingsReadModel interface {
	FindAll(ctx context.Context, status string) ([]entity.OpsBooking, error)
	Get(ctx context.Context, bookingID string) (entity.OpsBooking, error)
}

type TokenParser interface {
	Parse(token string) (userID string, err error)
}

type Server struct {
	addr string
	e    *echo.Echo

	ledger          Ledger
	stripeWebhooks  WebhookProcessor
	opsBookingsRepo OpsBookingsReadModel
	authorization   entity.AuthorizationChecker
	sessionTokens   TokenParser
}

func NewServer(
	addr string,
	ledger Ledger,
	stripeWebhooks WebhookProcessor,
	opsBookingsRepo OpsBookingsReadModel,
	authorization entity.AuthorizationChecker,
	sessionTokens TokenParser,
) *Server {
	e := echoHTTP.NewEcho()
	e.HTTPErrorHandler = withDomainErrors(e.HTTPErrorHandler)
	e.Use(otelecho.Middleware("travel"))

	server := &Server{
		addr:            addr,
		e:               e,
		ledger:          ledger,
		stripeWebhooks:  stripeWebhooks,
		opsBookingsRepo: opsBookingsRepo,
		authorization:   authorization,
		sessionTokens:   sessionTokens,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/webhooks/stripe", server.PostStripeWebhook)

	api := e.Group("", server.authenticate)

	api.POST("/bookings", server.PostBooking)
	api.GET("/bookings/:id", server.GetBooking)
	api.PATCH("/bookings/:id", server.PatchBooking)
	api.POST("/bookings/:id/cancel", server.PostCancelBooking)
	api.GET("/bookings/:id/payment-summary", server.GetPaymentSummary)

	api.POST("/payments", server.PostPayment)
	api.GET("/payments/:id", server.GetPayment)
	api.PATCH("/payments/:id/status", server.PatchPaymentStatus)
	api.POST("/payments/:id/refund", server.PostRefund)

	ops := api.Group("/ops", server.requireAdmin)
	ops.GET("/bookings", server.GetOpsBookings)
	ops.GET("/bookings/:id", server.GetOpsBooking)

	return server
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.Background())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the router for tests.
func (s Server) Handler() http.Handler {
	return s.e
}
