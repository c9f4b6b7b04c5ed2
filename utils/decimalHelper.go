package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the scale of every decimal(20,4) column.
const MoneyScale = 4

var (
	DecimalOneHundred = decimal.NewFromInt(100)
)

// Round2 rounds half away from zero to 2 places, i.e. half-up for the
// non-negative amounts it is used on.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundMoney rounds to the storage scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// CheckMoneyScale rejects amounts that the storage scale would truncate.
func CheckMoneyScale(field string, d decimal.Decimal) error {
	if !d.Equal(RoundMoney(d)) {
		return NewFieldValidationError(field, fmt.Sprintf("must have at most %d decimal places", MoneyScale))
	}
	return nil
}

func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
