package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"travel/entity"
)

type BookingsRepository interface {
	Create(ctx context.Context, booking entity.Booking) error
	Account(ctx context.Context, bookingID string) (*entity.BookingAccount, error)
	UpdateAccount(
		ctx context.Context,
		bookingID string,
		updateFn func(ctx context.Context, account *entity.BookingAccount) error,
	) (*entity.BookingAccount, error)
	GetPayment(ctx context.Context, paymentID string) (entity.Payment, error)
}

type CatalogRepository interface {
	ActivitiesByIDs(ctx context.Context, activityIDs []string) ([]entity.Activity, error)
	PackageByID(ctx context.Context, packageID string) (entity.Package, error)
}

// Service owns booking and payment state. Every operation takes the acting user explicitly and
// checks rights through the AuthorizationChecker.
type Service struct {
	bookings BookingsRepository
	catalog  CatalogRepository
	auth     entity.AuthorizationChecker
	gateways map[string]entity.PaymentGateway

	gatewayTimeout time.Duration
	now            func() time.Time
}

// NewService creates the ledger. gateways maps a payment provider to its gateway; providers
// without a gateway (entity.ProviderManual) are recorded locally only.
func NewService(
	bookings BookingsRepository,
	catalog CatalogRepository,
	auth entity.AuthorizationChecker,
	gateways map[string]entity.PaymentGateway,
	gatewayTimeout time.Duration,
) *Service {
	if bookings == nil {
		panic("bookings repository is nil")
	}
	if catalog == nil {
		panic("catalog repository is nil")
	}
	if auth == nil {
		panic("authorization checker is nil")
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}

	return &Service{
		bookings:       bookings,
		catalog:        catalog,
		auth:           auth,
		gateways:       gateways,
		gatewayTimeout: gatewayTimeout,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *Service) gateway(provider string) (entity.PaymentGateway, bool, error) {
	if g, ok := s.gateways[provider]; ok {
		return g, true, nil
	}
	if provider == entity.ProviderManual {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("%w: unsupported payment provider %s", entity.ErrValidation, provider)
}

func (s *Service) withGatewayTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.gatewayTimeout)
}

func logger(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return log.FromContext(ctx).WithFields(fields)
}
