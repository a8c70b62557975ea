package entity

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const amountFractionDigits = 2

var currencyCodeRegexp = regexp.MustCompile(`^[A-Z]{3}$`)

// Amounts are kept with two fraction digits and sent to providers in cents, so currencies with a
// different number of minor digits are not supported.
var unsupportedCurrencies = map[string]struct{}{
	// zero-decimal
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
	// three-decimal
	"BHD": {}, "JOD": {}, "KWD": {}, "OMR": {}, "TND": {},
}

// Money is the wire representation of an amount: a decimal string with exactly two fraction
// digits tagged with an ISO-4217 code.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   FormatAmount(amount),
		Currency: currency,
	}
}

func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(amountFractionDigits)
}

// ParseAmount parses a decimal amount, rejecting values with more than two fraction digits.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, invalidAmountf("%q is not a decimal", s)
	}
	if !amount.Equal(amount.Round(amountFractionDigits)) {
		return decimal.Decimal{}, invalidAmountf("%q has more than %d fraction digits", s, amountFractionDigits)
	}

	return amount.Round(amountFractionDigits), nil
}

// NormalizeCurrency upper-cases and validates a 3-letter currency code with two minor digits.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if !currencyCodeRegexp.MatchString(c) {
		return "", validationErrorf("currency %q is not an ISO-4217 code", currency)
	}
	if _, ok := unsupportedCurrencies[c]; ok {
		return "", validationErrorf("currency %s does not use two minor digits", c)
	}

	return c, nil
}

// MinorUnits converts an amount to the provider's integer minor units (cents). Only currencies
// accepted by NormalizeCurrency are valid here.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(amountFractionDigits).Round(0).IntPart()
}

func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -amountFractionDigits)
}
