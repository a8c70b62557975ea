package ledger_test

import (
	"context"
	"fmt"
	"sync"

	"travel/entity"
)

type bookingsRepositoryMock struct {
	lock   sync.Mutex
	update sync.Mutex

	bookings map[string]entity.Booking
	payments map[string][]entity.Payment
	events   []any
}

func newBookingsRepositoryMock() *bookingsRepositoryMock {
	return &bookingsRepositoryMock{
		bookings: map[string]entity.Booking{},
		payments: map[string][]entity.Payment{},
	}
}

func (r *bookingsRepositoryMock) Create(_ context.Context, booking entity.Booking) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.bookings[booking.BookingID]; ok {
		return entity.ErrConflict
	}
	r.bookings[booking.BookingID] = booking
	r.events = append(r.events, entity.BookingCreated_v1{BookingID: booking.BookingID})

	return nil
}

func (r *bookingsRepositoryMock) Account(_ context.Context, bookingID string) (*entity.BookingAccount, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.account(bookingID)
}

func (r *bookingsRepositoryMock) account(bookingID string) (*entity.BookingAccount, error) {
	booking, ok := r.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", bookingID, entity.ErrNotFound)
	}

	payments := make([]entity.Payment, 0, len(r.payments[bookingID]))
	for _, p := range r.payments[bookingID] {
		p.Refunds = append(entity.RefundRecords{}, p.Refunds...)
		p.Metadata = entity.Metadata{}.Merge(p.Metadata)
		payments = append(payments, p)
	}

	return entity.NewBookingAccount(booking, payments), nil
}

func (r *bookingsRepositoryMock) UpdateAccount(
	ctx context.Context,
	bookingID string,
	updateFn func(ctx context.Context, account *entity.BookingAccount) error,
) (*entity.BookingAccount, error) {
	r.update.Lock()
	defer r.update.Unlock()

	account, err := r.Account(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := updateFn(ctx, account); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.bookings[bookingID] = account.Booking
	r.payments[bookingID] = account.Payments
	r.events = append(r.events, account.Events()...)

	return account, nil
}

func (r *bookingsRepositoryMock) GetPayment(_ context.Context, paymentID string) (entity.Payment, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, payments := range r.payments {
		for _, p := range payments {
			if p.PaymentID == paymentID {
				return p, nil
			}
		}
	}

	return entity.Payment{}, fmt.Errorf("payment %s: %w", paymentID, entity.ErrNotFound)
}

func (r *bookingsRepositoryMock) SetStatus(bookingID string, status entity.BookingStatus) {
	r.lock.Lock()
	defer r.lock.Unlock()

	booking := r.bookings[bookingID]
	booking.Status = status
	r.bookings[booking.BookingID] = booking
}

func (r *bookingsRepositoryMock) Payments(bookingID string) []entity.Payment {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]entity.Payment{}, r.payments[bookingID]...)
}

func (r *bookingsRepositoryMock) Events() []any {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]any{}, r.events...)
}

func (r *bookingsRepositoryMock) owner(bookingID string) string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.bookings[bookingID].CustomerID
}

type catalogRepositoryMock struct {
	activities map[string]entity.Activity
	packages   map[string]entity.Package
}

func (c catalogRepositoryMock) ActivitiesByIDs(_ context.Context, activityIDs []string) ([]entity.Activity, error) {
	var activities []entity.Activity
	for _, id := range activityIDs {
		if a, ok := c.activities[id]; ok {
			activities = append(activities, a)
		}
	}
	return activities, nil
}

func (c catalogRepositoryMock) PackageByID(_ context.Context, packageID string) (entity.Package, error) {
	pkg, ok := c.packages[packageID]
	if !ok {
		return entity.Package{}, fmt.Errorf("package %s: %w", packageID, entity.ErrNotFound)
	}
	return pkg, nil
}

type authorizationCheckerMock struct {
	bookings *bookingsRepositoryMock
	admins   map[string]bool
}

func (a authorizationCheckerMock) IsOwner(_ context.Context, bookingID string, actorID string) (bool, error) {
	return a.bookings.owner(bookingID) == actorID, nil
}

func (a authorizationCheckerMock) IsAdmin(_ context.Context, actorID string) (bool, error) {
	return a.admins[actorID], nil
}
