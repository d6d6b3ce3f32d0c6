package extract

import (
	"strings"
	"time"

	"github.com/use-agent/harvest/models"
)

// maxNameLen clamps product names; some sites ship entire keyword
// inventories as the title.
const maxNameLen = 300

// FinishProduct normalises a freshly extracted product into its final,
// immutable form: name clamped, brand cleaned, offer price defaulted,
// metadata stamped. The record is not mutated after this.
func FinishProduct(p *models.ScrapedProduct, originalURL string) *models.ScrapedProduct {
	p.Name = clampText(strings.TrimSpace(p.Name), maxNameLen)
	p.Brand = CleanBrand(p.Brand)

	if p.ProductPrice < 0 {
		p.ProductPrice = 0
	}
	if p.OfferPrice < p.ProductPrice {
		p.OfferPrice = p.ProductPrice
	}
	if p.Rating < 0 {
		p.Rating = 0
	}
	if p.Rating > 5 {
		p.Rating = 5
	}
	if p.ReviewCount < 0 {
		p.ReviewCount = 0
	}

	p.StampMetadata(originalURL, time.Now())
	return p
}

// FinishSearch assembles the final search result from merged summaries.
func FinishSearch(summaries []models.ScrapedProductSummary, searchURL string, page int) *models.ScrapedSearchResult {
	if summaries == nil {
		summaries = []models.ScrapedProductSummary{}
	}
	for i := range summaries {
		summaries[i].Name = clampText(summaries[i].Name, maxNameLen)
		summaries[i].Brand = CleanBrand(summaries[i].Brand)
		if summaries[i].OfferPrice < summaries[i].ProductPrice {
			summaries[i].OfferPrice = summaries[i].ProductPrice
		}
	}
	if page < 1 {
		page = 1
	}
	return &models.ScrapedSearchResult{
		Products:     summaries,
		TotalResults: len(summaries),
		CurrentPage:  page,
		SearchURL:    searchURL,
	}
}
