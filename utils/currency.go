package utils

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySuffix is appended by FormatCurrency, configurable via CURRENCY_SUFFIX.
var CurrencySuffix = "VNĐ"

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount formats a value with no decimals and thousands separated by ','.
// Example: 1234567.4 -> "1,234,567"
func FormatAmount(amount float64) string {
	return amountPrinter.Sprintf("%d", int64(RoundMoney(amount)))
}

// FormatCurrency -> "45,000 VNĐ"
func FormatCurrency(amount float64) string {
	return FormatAmount(amount) + " " + CurrencySuffix
}

// RoundMoney rounds to whole currency units; VND has no minor unit.
func RoundMoney(amount float64) float64 {
	return math.Round(amount)
}
