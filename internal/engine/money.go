package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

var moneyReplacer = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	",", "",
)

// ParseAmount strips currency symbols, thousands separators and surrounding
// whitespace, then parses the remainder as an exact base-10 decimal. Binary
// floating point is never involved, so financial totals do not drift.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(moneyReplacer.Replace(s))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
