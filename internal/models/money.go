package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(18, 4).
const (
	MoneyScale         = 4
	MoneyIntegerDigits = 14
)

var moneyLimit = decimal.New(1, MoneyIntegerDigits)

// ValidateMoney rejects amounts the money columns cannot hold exactly.
func ValidateMoney(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(MoneyScale)) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must have at most %d decimal places", MoneyScale)}
	}
	if d.Abs().GreaterThanOrEqual(moneyLimit) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must have at most %d integer digits", MoneyIntegerDigits)}
	}
	return nil
}
