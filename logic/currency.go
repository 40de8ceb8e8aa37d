package logic

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "EUR"

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF ",
}

// FormatCurrency renders amount with two decimals, comma thousands
// separators and a leading symbol, e.g. "€1,234.50" or "-$3.00".
// Unknown codes are printed as a prefix: "SEK 10.00".
func FormatCurrency(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}

	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Cents converts a price to the smallest currency unit, rounding half away
// from zero. Amounts that do not fit in an int64 are rejected.
func Cents(amount decimal.Decimal) (int64, error) {
	cents := amount.Shift(2).Round(0).BigInt()
	if !cents.IsInt64() {
		return 0, NewInvalidItemf("%s: %s", ErrMsgPriceTooLarge, amount.String())
	}
	return cents.Int64(), nil
}
