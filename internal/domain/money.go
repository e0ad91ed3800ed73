package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var DefaultCurrency = currency.USD

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func NewMoney(amount decimal.Decimal, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

// Times returns the price of quantity units.
func (m Money) Times(quantity int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(quantity))),
		Currency: m.Currency,
	}
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// String renders the amount with two fractional digits, e.g. "25.00 USD".
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency.String()
}
