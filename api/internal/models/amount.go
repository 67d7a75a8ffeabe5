package models

import (
	"github.com/shopspring/decimal"
)

// Amount is a decimal money value that serializes as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

func NewAmount(v float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(v)}
}

func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

func (a Amount) IsPositive() bool {
	return a.Decimal.IsPositive()
}
