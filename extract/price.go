package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// currencyRunes are stripped before numeric parsing. Covers the symbols
// and codes of every supported marketplace.
var currencyStrip = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "￥", "", "₹", "",
	"US", "", "USD", "", "EUR", "", "GBP", "", "CNY", "", "INR", "",
	"元", "", " ", " ",
)

// priceInText matches currency-adjacent number patterns in free text,
// the last-resort price source when no selector yields one.
var priceInText = regexp.MustCompile(`[\$€£¥￥₹]\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// firstNumber pulls the first decimal number out of a string.
var firstNumber = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)

// ParsePrice turns a displayed price string ("$1,234.99", "¥ 59.00",
// "1.299,00 €") into a float. Returns false when no number is present.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(currencyStrip.Replace(s))
	if s == "" {
		return 0, false
	}

	m := firstNumberWithSeparators.FindString(s)
	if m == "" {
		return 0, false
	}

	// Normalise thousand separators. A trailing two-digit comma group is
	// a decimal comma (European style); every other comma is a grouping
	// character, as is any dot followed by exactly three digits and more
	// separators.
	m = normaliseSeparators(m)

	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

var firstNumberWithSeparators = regexp.MustCompile(`[0-9][0-9.,]*`)

func normaliseSeparators(m string) string {
	lastComma := strings.LastIndex(m, ",")
	lastDot := strings.LastIndex(m, ".")

	switch {
	case lastComma > lastDot && len(m)-lastComma-1 == 2:
		// Decimal comma: drop grouping dots, swap comma for dot.
		m = strings.ReplaceAll(m, ".", "")
		m = strings.Replace(m, ",", ".", 1)
	default:
		m = strings.ReplaceAll(m, ",", "")
	}
	return m
}

// FindPriceInText scans free page text for a currency-adjacent number.
func FindPriceInText(text string) (float64, bool) {
	m := priceInText.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	return ParsePrice(m[1])
}

// ResolvePrices applies the pricing convention: detected is the price
// currently charged and becomes ProductPrice; the struck-through
// original becomes OfferPrice only when it is genuinely higher. With a
// single price both fields hold it.
func ResolvePrices(detected, struck float64) (productPrice, offerPrice float64) {
	if detected < 0 {
		detected = 0
	}
	if struck > detected {
		return detected, struck
	}
	return detected, detected
}
