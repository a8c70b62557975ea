package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/entity"
)

func TestCalculatePriceSnapshot(t *testing.T) {
	activities := []entity.Activity{
		{ActivityID: "kayak", Price: decimal.RequireFromString("120.50"), Currency: "USD"},
		{ActivityID: "hike", Price: decimal.RequireFromString("79.50"), Currency: "USD"},
		{ActivityID: "museum", Price: decimal.RequireFromString("30.00"), Currency: "EUR"},
	}

	t.Run("sums_activity_prices", func(t *testing.T) {
		snapshot, err := entity.CalculatePriceSnapshot([]string{"kayak", "hike"}, activities, nil)
		require.NoError(t, err)

		assert.Equal(t, "200.00", entity.FormatAmount(snapshot.Total))
		assert.Equal(t, "USD", snapshot.Currency)
		assert.Equal(t, "120.5", snapshot.ActivityPrices["kayak"].String())
	})

	t.Run("adds_package_base_fee", func(t *testing.T) {
		pkg := &entity.Package{
			PackageID:   "coast",
			BasePrice:   decimal.RequireFromString("100.00"),
			Currency:    "USD",
			ActivityIDs: []string{"kayak", "hike"},
		}

		snapshot, err := entity.CalculatePriceSnapshot([]string{"kayak", "hike"}, activities, pkg)
		require.NoError(t, err)

		assert.Equal(t, "300.00", entity.FormatAmount(snapshot.Total))
	})

	t.Run("activity_not_in_package", func(t *testing.T) {
		pkg := &entity.Package{PackageID: "coast", Currency: "USD", ActivityIDs: []string{"kayak"}}

		_, err := entity.CalculatePriceSnapshot([]string{"kayak", "hike"}, activities, pkg)
		assert.ErrorIs(t, err, entity.ErrValidation)
		assert.ErrorContains(t, err, "activity not in package")
	})

	t.Run("missing_activity", func(t *testing.T) {
		_, err := entity.CalculatePriceSnapshot([]string{"kayak", "unknown"}, activities, nil)
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("mixed_currencies", func(t *testing.T) {
		_, err := entity.CalculatePriceSnapshot([]string{"kayak", "museum"}, activities, nil)
		assert.ErrorIs(t, err, entity.ErrValidation)
	})

	t.Run("no_activities", func(t *testing.T) {
		_, err := entity.CalculatePriceSnapshot(nil, activities, nil)
		assert.ErrorIs(t, err, entity.ErrValidation)
	})
}

func TestNewBooking_freezes_line_item_prices(t *testing.T) {
	activities := []entity.Activity{
		{ActivityID: "kayak", Price: decimal.RequireFromString("120.00"), Currency: "USD"},
	}
	snapshot, err := entity.CalculatePriceSnapshot([]string{"kayak"}, activities, nil)
	require.NoError(t, err)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	booking, err := entity.NewBooking(entity.NewBookingParams{
		CustomerID: "customer-1",
		Items:      []entity.LineItemRequest{{ActivityID: "kayak"}},
		StartDate:  start,
		EndDate:    start.Add(48 * time.Hour),
	}, snapshot, time.Now())
	require.NoError(t, err)

	// catalog price change after booking
	activities[0].Price = decimal.RequireFromString("999.00")

	require.Len(t, booking.LineItems, 1)
	assert.Equal(t, "120.00", entity.FormatAmount(booking.LineItems[0].PriceAtBooking))
	assert.Equal(t, "120.00", entity.FormatAmount(booking.TotalPrice))
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
}

func TestNewBooking_rejects_invalid_date_range(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := entity.NewBooking(entity.NewBookingParams{
		CustomerID: "customer-1",
		Items:      []entity.LineItemRequest{{ActivityID: "kayak"}},
		StartDate:  start,
		EndDate:    start,
	}, entity.PriceSnapshot{}, time.Now())
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestParseAmount(t *testing.T) {
	amount, err := entity.ParseAmount("100.5")
	require.NoError(t, err)
	assert.Equal(t, "100.50", entity.FormatAmount(amount))

	_, err = entity.ParseAmount("1.005")
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	_, err = entity.ParseAmount("abc")
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(30000), entity.MinorUnits(decimal.RequireFromString("300.00")))
	assert.Equal(t, "1.99", entity.FormatAmount(entity.FromMinorUnits(199)))
}

func TestNormalizeCurrency(t *testing.T) {
	currency, err := entity.NormalizeCurrency(" eur ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", currency)

	for _, c := range []string{"JPY", "krw", "KWD", "EURO", ""} {
		_, err := entity.NormalizeCurrency(c)
		assert.ErrorIs(t, err, entity.ErrValidation, c)
	}
}

func TestCalculatePriceSnapshot_rejects_zero_decimal_currency(t *testing.T) {
	_, err := entity.CalculatePriceSnapshot([]string{"a1"}, []entity.Activity{
		{ActivityID: "a1", Name: "Tea ceremony", Price: decimal.RequireFromString("5000"), Currency: "JPY"},
	}, nil)
	assert.ErrorIs(t, err, entity.ErrValidation)
}
