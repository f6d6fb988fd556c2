package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var suffixes = []struct {
	value  int64
	suffix string
}{
	{1_000_000_000_000, "T"},
	{1_000_000_000, "B"},
	{1_000_000, "M"},
	{1_000, "K"},
}

// Commas formats an amount with thousand separators and at most two decimals
func Commas(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	whole := rounded.Truncate(0)
	frac := rounded.Sub(whole)

	str := whole.String()
	n := len(str)
	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	if !frac.IsZero() {
		// "0.5" -> ".5"
		result.WriteString(strings.TrimPrefix(frac.String(), "0"))
	}

	return sign + result.String()
}

// Money formats an amount as dollars: 1000 -> $1,000, 12.5 -> $12.5
func Money(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + Commas(amount.Abs())
	}
	return "$" + Commas(amount)
}

// Short formats an amount with a magnitude suffix: 1500 -> $1.5K, 1000000 -> $1M
func Short(amount decimal.Decimal) string {
	value := amount.IntPart()
	if value < 1_000 {
		return fmt.Sprintf("$%d", value)
	}

	for _, s := range suffixes {
		if value < s.value {
			continue
		}
		truncated := value / (s.value / 10)
		if truncated < 100 && truncated%10 != 0 {
			return fmt.Sprintf("$%d.%d%s", truncated/10, truncated%10, s.suffix)
		}
		return fmt.Sprintf("$%d%s", truncated/10, s.suffix)
	}

	return fmt.Sprintf("$%d", value)
}

// ParseAmount parses user supplied amounts such as "1k", "1.5m", "$1,000" or "250"
func ParseAmount(input string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(input)
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	multiplier := decimal.NewFromInt(1)
	switch {
	case strings.HasSuffix(cleaned, "k"):
		multiplier = decimal.NewFromInt(1_000)
	case strings.HasSuffix(cleaned, "m"):
		multiplier = decimal.NewFromInt(1_000_000)
	case strings.HasSuffix(cleaned, "b"):
		multiplier = decimal.NewFromInt(1_000_000_000)
	}
	if !multiplier.Equal(decimal.NewFromInt(1)) {
		cleaned = cleaned[:len(cleaned)-1]
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", input, err)
	}

	return value.Mul(multiplier), nil
}
