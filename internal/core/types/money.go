// Package types provides value types shared by the ledger.
package types

import (
	"github.com/shopspring/decimal"
)

// Money is a monetary amount. Stored as NUMERIC(12,2).
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept for prices and totals.
const MoneyScale int32 = 2

// NewMoneyFromString parses a decimal string such as "50.00".
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney is for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// LineTotal returns quantity × unit price rounded to MoneyScale.
func LineTotal(quantity int, unitPrice Money) Money {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds amounts and rounds the result.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return RoundMoney(total)
}
