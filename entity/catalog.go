package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Activity struct {
	ActivityID string          `json:"activity_id" db:"activity_id"`
	Name       string          `json:"name" db:"name"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Currency   string          `json:"currency" db:"currency"`
}

type Package struct {
	PackageID string          `json:"package_id" db:"package_id"`
	Name      string          `json:"name" db:"name"`
	BasePrice decimal.Decimal `json:"base_price" db:"base_price"`
	Currency  string          `json:"currency" db:"currency"`

	ActivityIDs []string `json:"activity_ids" db:"-"`
}

func (p Package) Includes(activityID string) bool {
	for _, id := range p.ActivityIDs {
		if id == activityID {
			return true
		}
	}
	return false
}

// PriceSnapshot is the frozen price of a booking computed at creation time.
type PriceSnapshot struct {
	Total    decimal.Decimal
	Currency string
	// ActivityPrices holds the price captured for every requested activity, keyed by activity id.
	ActivityPrices map[string]decimal.Decimal
}

// CalculatePriceSnapshot sums the current catalog price of every activity plus the package base
// fee. requestedIDs may repeat an activity; each occurrence is charged.
func CalculatePriceSnapshot(requestedIDs []string, activities []Activity, pkg *Package) (PriceSnapshot, error) {
	if len(requestedIDs) == 0 {
		return PriceSnapshot{}, validationErrorf("at least one activity is required")
	}

	byID := make(map[string]Activity, len(activities))
	for _, a := range activities {
		byID[a.ActivityID] = a
	}

	snapshot := PriceSnapshot{
		Total:          decimal.Zero,
		ActivityPrices: make(map[string]decimal.Decimal, len(requestedIDs)),
	}
	if pkg != nil {
		snapshot.Currency = pkg.Currency
		snapshot.Total = pkg.BasePrice
	}

	for _, id := range requestedIDs {
		activity, ok := byID[id]
		if !ok {
			return PriceSnapshot{}, fmt.Errorf("activity %s: %w", id, ErrNotFound)
		}

		if pkg != nil && !pkg.Includes(id) {
			return PriceSnapshot{}, validationErrorf("activity not in package: %s", id)
		}

		if snapshot.Currency == "" {
			snapshot.Currency = activity.Currency
		}
		if activity.Currency != snapshot.Currency {
			return PriceSnapshot{}, validationErrorf(
				"activity %s is priced in %s, booking is in %s",
				id, activity.Currency, snapshot.Currency,
			)
		}

		snapshot.ActivityPrices[id] = activity.Price
		snapshot.Total = snapshot.Total.Add(activity.Price)
	}

	if _, err := NormalizeCurrency(snapshot.Currency); err != nil {
		return PriceSnapshot{}, err
	}

	snapshot.Total = snapshot.Total.Round(amountFractionDigits)

	return snapshot, nil
}
