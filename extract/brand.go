package extract

import (
	"regexp"
	"strings"
)

// brandBoilerplate strips the storefront prefixes sites wrap around
// brand names ("Visit the X Store", "Shop Y", "Brand: Z").
var brandBoilerplate = []string{
	"visit the", "shop the", "shop", "store", "official", "brand:", "by",
}

// brandDelimiters truncate a brand string at the first occurrence;
// everything after is marketing copy.
var brandDelimiters = []string{"|", "–", "—", " - ", ",", "(", "["}

// aboutBrandPattern pulls a brand out of an "About this item" style
// text block.
var aboutBrandPattern = regexp.MustCompile(`(?i)\bbrand\b[:\s]+([A-Za-z0-9][A-Za-z0-9&' .\-]{1,40})`)

var numericOnly = regexp.MustCompile(`^[0-9]+$`)

// CleanBrand normalises a raw brand string: boilerplate prefixes and
// suffixes removed, truncated at delimiter characters, trailing
// punctuation dropped.
func CleanBrand(raw string) string {
	b := strings.TrimSpace(raw)
	if b == "" {
		return ""
	}

	for _, d := range brandDelimiters {
		if idx := strings.Index(b, d); idx > 0 {
			b = b[:idx]
		}
	}

	lower := strings.ToLower(b)
	for _, prefix := range brandBoilerplate {
		if strings.HasPrefix(lower, prefix+" ") || lower == prefix {
			b = strings.TrimSpace(b[len(prefix):])
			lower = strings.ToLower(b)
		}
	}
	// "Visit the X Store" keeps a trailing "Store" after prefix removal.
	for _, suffix := range []string{" store", " official store", " shop"} {
		if strings.HasSuffix(lower, suffix) {
			b = strings.TrimSpace(b[:len(b)-len(suffix)])
			lower = strings.ToLower(b)
		}
	}

	b = strings.TrimRight(b, ".,;:!-– ")
	return strings.TrimSpace(b)
}

// BrandFromText extracts a brand from an "About this item" block.
func BrandFromText(text string) string {
	m := aboutBrandPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return CleanBrand(m[1])
}

// BrandFromName is the last-resort guess: the product name's first
// capitalized word, accepted only when it looks brand-like — reasonable
// length, not purely numeric, not a 1-2 letter acronym.
func BrandFromName(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return ""
	}
	first := strings.Trim(fields[0], ".,;:()[]")

	if len(first) < 3 || len(first) > 20 {
		return ""
	}
	if numericOnly.MatchString(first) {
		return ""
	}
	r := rune(first[0])
	if r < 'A' || r > 'Z' {
		return ""
	}
	return first
}
