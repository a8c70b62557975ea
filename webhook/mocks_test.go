package webhook_test

import (
	"context"
	"fmt"
	"sync"

	"travel/entity"
)

type paymentsRepositoryMock struct {
	lock    sync.Mutex
	account *entity.BookingAccount
	updates int
	fail    error
}

func (r *paymentsRepositoryMock) find(match func(p entity.Payment) bool) (entity.Payment, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, p := range r.account.Payments {
		if match(p) {
			return p, nil
		}
	}
	return entity.Payment{}, fmt.Errorf("payment: %w", entity.ErrNotFound)
}

func (r *paymentsRepositoryMock) PaymentByIntentID(_ context.Context, intentID string) (entity.Payment, error) {
	return r.find(func(p entity.Payment) bool {
		return p.IntentID != nil && *p.IntentID == intentID
	})
}

func (r *paymentsRepositoryMock) PaymentByTransactionID(_ context.Context, transactionID string) (entity.Payment, error) {
	return r.find(func(p entity.Payment) bool {
		return p.TransactionID != nil && *p.TransactionID == transactionID
	})
}

func (r *paymentsRepositoryMock) UpdateAccount(
	ctx context.Context,
	_ string,
	updateFn func(ctx context.Context, account *entity.BookingAccount) error,
) (*entity.BookingAccount, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.fail != nil {
		return nil, r.fail
	}

	payments := make([]entity.Payment, 0, len(r.account.Payments))
	for _, p := range r.account.Payments {
		p.Refunds = append(entity.RefundRecords{}, p.Refunds...)
		payments = append(payments, p)
	}
	account := entity.NewBookingAccount(r.account.Booking, payments)

	if err := updateFn(ctx, account); err != nil {
		return nil, err
	}

	r.account = account
	r.updates++

	return account, nil
}

func (r *paymentsRepositoryMock) Payment(i int) entity.Payment {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.account.Payments[i]
}

func (r *paymentsRepositoryMock) Booking() entity.Booking {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.account.Booking
}

func (r *paymentsRepositoryMock) Summary() entity.PaymentSummary {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.account.Summary()
}

func (r *paymentsRepositoryMock) Updates() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.updates
}

type eventJournalMock struct {
	lock      sync.Mutex
	processed map[string]string
}

func (j *eventJournalMock) Register(_ context.Context, provider, eventID, _ string) (bool, error) {
	j.lock.Lock()
	defer j.lock.Unlock()

	_, ok := j.processed[provider+"/"+eventID]
	return ok, nil
}

func (j *eventJournalMock) MarkProcessed(_ context.Context, provider, eventID, outcome string) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	if j.processed == nil {
		j.processed = map[string]string{}
	}
	j.processed[provider+"/"+eventID] = outcome
	return nil
}
