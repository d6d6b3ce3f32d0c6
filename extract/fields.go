package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/harvest/models"
)

var digitsOnly = regexp.MustCompile(`[0-9]+`)

// parseRating extracts a 0-5 rating from strings like "4.3 out of 5
// stars" or "4.8". Out-of-range values are clamped; garbage yields 0.
func parseRating(s string) float64 {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

// parseCount extracts a non-negative integer from strings like
// "1,437 ratings" or "(89)".
func parseCount(s string) int {
	cleaned := strings.ReplaceAll(s, ",", "")
	m := digitsOnly.FindString(cleaned)
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// summaryFrom builds a list-row summary. Price doubles as both fields
// at this stage; product-page extraction is where strike prices split
// them. Summaries default to in-stock: search pages rarely render
// out-of-stock items at all.
func summaryFrom(name, productURL, image string, price, rating float64, reviews int, brand string) models.ScrapedProductSummary {
	return models.ScrapedProductSummary{
		Name:         strings.TrimSpace(name),
		ProductURL:   productURL,
		Image:        image,
		ProductPrice: price,
		OfferPrice:   price,
		Rating:       rating,
		ReviewCount:  reviews,
		InStock:      true,
		Brand:        strings.TrimSpace(brand),
	}
}
