package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must be positive")
)

// Scale is the storage precision for all balances, principals and profits.
// Amounts cross the storage and API boundaries as base-10 decimal strings
// formatted to this scale.
const Scale = 8

func Parse(input string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -Scale {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

func ParsePositive(input string) (decimal.Decimal, error) {
	value, err := Parse(input)
	if err != nil {
		return decimal.Zero, err
	}
	if value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNegativeAmount
	}
	return value, nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// FormatToken rounds to the display precision used for a token's trade
// amounts (8 for BTC, 6 for ETH, 4 for everything else).
func FormatToken(value decimal.Decimal, precision int32) string {
	return value.Round(precision).StringFixed(precision)
}

func ValueToDecimal(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return parsed
	case []byte:
		parsed, err := decimal.NewFromString(string(v))
		if err != nil {
			return decimal.Zero
		}
		return parsed
	case int64:
		return decimal.NewFromInt(v)
	case float64:
		return decimal.NewFromFloat(v)
	default:
		parsed, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return decimal.Zero
		}
		return parsed
	}
}
