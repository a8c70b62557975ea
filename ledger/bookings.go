package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"travel/entity"
)

// CreateBooking prices the requested activities at their current catalog price and stores a
// pending booking owned by actor.
func (s *Service) CreateBooking(ctx context.Context, actor string, params entity.NewBookingParams) (entity.Booking, error) {
	if err := requireActor(actor); err != nil {
		return entity.Booking{}, err
	}
	params.CustomerID = actor

	if err := entity.ValidateDateRange(params.StartDate, params.EndDate); err != nil {
		return entity.Booking{}, err
	}
	if len(params.Items) == 0 {
		return entity.Booking{}, fmt.Errorf("%w: at least one activity is required", entity.ErrValidation)
	}

	activityIDs := params.ActivityIDs()
	activities, err := s.catalog.ActivitiesByIDs(ctx, activityIDs)
	if err != nil {
		return entity.Booking{}, err
	}

	var pkg *entity.Package
	if params.PackageID != nil {
		p, err := s.catalog.PackageByID(ctx, *params.PackageID)
		if err != nil {
			return entity.Booking{}, err
		}
		pkg = &p
	}

	snapshot, err := entity.CalculatePriceSnapshot(activityIDs, activities, pkg)
	if err != nil {
		return entity.Booking{}, err
	}

	booking, err := entity.NewBooking(params, snapshot, s.now())
	if err != nil {
		return entity.Booking{}, err
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return entity.Booking{}, err
	}

	logger(ctx, logrus.Fields{
		"booking_id":  booking.BookingID,
		"customer_id": booking.CustomerID,
		"total_price": entity.FormatAmount(booking.TotalPrice),
	}).Info("Booking created")

	return booking, nil
}

// CancelBooking cancels the booking on the owner's request. Payments are left as they are.
func (s *Service) CancelBooking(ctx context.Context, actor string, bookingID string) (entity.Booking, error) {
	account, err := s.bookings.UpdateAccount(ctx, bookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		if err := s.requireOwner(ctx, bookingID, actor); err != nil {
			return err
		}
		// a fulfilled booking is only cancelled by refunding its payments
		if account.Booking.Status == entity.BookingStatusCompleted {
			return fmt.Errorf("booking %s is completed: %w", bookingID, entity.ErrInvalidState)
		}
		return account.Cancel("cancelled by customer", s.now())
	})
	if err != nil {
		return entity.Booking{}, err
	}

	logger(ctx, logrus.Fields{"booking_id": bookingID}).Info("Booking cancelled")

	return account.Booking, nil
}

func (s *Service) UpdateBooking(ctx context.Context, actor string, bookingID string, update entity.BookingUpdate) (entity.Booking, error) {
	account, err := s.bookings.UpdateAccount(ctx, bookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		if err := s.requireOwnerOrAdmin(ctx, bookingID, actor); err != nil {
			return err
		}
		return account.Booking.Apply(update, s.now())
	})
	if err != nil {
		return entity.Booking{}, err
	}

	return account.Booking, nil
}

func (s *Service) GetBooking(ctx context.Context, actor string, bookingID string) (entity.Booking, error) {
	account, err := s.bookings.Account(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, err
	}
	if err := s.requireOwnerOrAdmin(ctx, bookingID, actor); err != nil {
		return entity.Booking{}, err
	}

	return account.Booking, nil
}

// PaymentSummary derives the payment status of a booking from all of its payments.
func (s *Service) PaymentSummary(ctx context.Context, actor string, bookingID string) (entity.PaymentSummary, error) {
	account, err := s.bookings.Account(ctx, bookingID)
	if err != nil {
		return entity.PaymentSummary{}, err
	}
	if err := s.requireOwnerOrAdmin(ctx, bookingID, actor); err != nil {
		return entity.PaymentSummary{}, err
	}

	return account.Summary(), nil
}
