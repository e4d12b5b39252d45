package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ToMinorUnits converts a display amount to the gateway's smallest currency unit,
// rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

func FromMinorUnits(minor int64) float64 {
	f, _ := decimal.New(minor, -2).Float64()
	return f
}

var (
	indianPrinter  = message.NewPrinter(language.MustParse("en-IN"))
	westernPrinter = message.NewPrinter(language.English)
)

// FormatPrice renders amounts the way the storefront shows them: whole units,
// lakh grouping (1,23,456) for INR and thousands grouping otherwise.
func FormatPrice(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "INR"
	}
	p := westernPrinter
	if currency == "INR" {
		p = indianPrinter
	}
	return currency + " " + p.Sprint(number.Decimal(amount, number.MaxFractionDigits(0)))
}
