package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMoney converts a stored or user-entered amount to a decimal.
// Accepts strings such as "$1,250.00", "USD -300", "(45.10)" and the
// numeric types database drivers return.
func ParseMoney(i interface{}) (decimal.Decimal, error) {
	switch v := i.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("nil value")
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, fmt.Errorf("nil value")
		}
		return *v, nil
	case []byte:
		return ParseMoney(string(v))
	case string:
		return parseMoneyString(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint:
		return decimal.NewFromInt(int64(v)), nil
	case uint32:
		return decimal.NewFromInt(int64(v)), nil
	case uint64:
		return decimal.NewFromInt(int64(v)), nil
	case float32:
		return floatToDecimal(float64(v))
	case float64:
		return floatToDecimal(v)
	default:
		return decimal.Zero, fmt.Errorf("invalid value of type %T", i)
	}
}

// MoneyOrZero is ParseMoney with failures mapped to 0.
func MoneyOrZero(i interface{}) decimal.Decimal {
	d, err := ParseMoney(i)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func floatToDecimal(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("invalid value")
	}
	return decimal.NewFromFloat(f), nil
}

func parseMoneyString(v string) (decimal.Decimal, error) {
	s := strings.TrimSpace(v)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s != "" {
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, "USD", "")
		s = strings.ReplaceAll(s, "usd", "")
		s = strings.ReplaceAll(s, "$", "")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	// Strip everything except digits and '.'.
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, fmt.Errorf("invalid value")
	}
	if neg {
		clean = "-" + clean
	}

	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}
	return val, nil
}
