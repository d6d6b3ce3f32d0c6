package models

import "time"

// ScrapedProduct is the canonical single-item record produced by a provider.
//
// Pricing convention: ProductPrice is the price currently listed/charged on
// the page; OfferPrice is the struck-through original price when one exists
// and is numerically greater. When only one price is found, both fields hold
// that value. ProductPrice is never negative.
type ScrapedProduct struct {
	// Name is the product title. Clamped by the normalizer.
	Name string `json:"name"`

	// ProductPrice is the currently listed price.
	ProductPrice float64 `json:"product_price"`

	// OfferPrice is the struck-through original price when greater than
	// ProductPrice; otherwise it equals ProductPrice.
	OfferPrice float64 `json:"offer_price"`

	// Brand is the cleaned brand string (may be empty).
	Brand string `json:"brand,omitempty"`

	// Barcode is the site's external identifier (ASIN, item id, …).
	Barcode string `json:"barcode,omitempty"`

	// Description is free-text (Markdown) product copy.
	Description string `json:"description,omitempty"`

	// Specifications preserves every (label, value) pair found on the page.
	// Labels are not guaranteed unique.
	Specifications []ScrapedSpecification `json:"specifications,omitempty"`

	// Images holds extracted product images; the first one is primary.
	Images []ScrapedImage `json:"images,omitempty"`

	// Rating is a 0-5 float.
	Rating float64 `json:"rating"`

	// ReviewCount is a non-negative review total.
	ReviewCount int `json:"review_count"`

	InStock bool `json:"in_stock"`

	// SourceURL and SourcePlatform are always set by the pipeline.
	SourceURL      string `json:"source_url"`
	SourcePlatform string `json:"source_platform"`

	// Metadata carries scrape bookkeeping (timestamp, original URL).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScrapedProductSummary is the lightweight list-row projection used inside
// search results. ProductURL is required and unique within one result list;
// the pipeline enforces deduplication.
type ScrapedProductSummary struct {
	Name         string  `json:"name"`
	ProductURL   string  `json:"product_url"`
	Image        string  `json:"image,omitempty"`
	ProductPrice float64 `json:"product_price"`
	OfferPrice   float64 `json:"offer_price"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
	InStock      bool    `json:"in_stock"`
	Brand        string  `json:"brand,omitempty"`
}

// ScrapedSearchResult is an ordered sequence of summaries. Order is
// "as discovered" on the source page; no ranking beyond that.
type ScrapedSearchResult struct {
	Products     []ScrapedProductSummary `json:"products"`
	TotalResults int                     `json:"total_results"`
	CurrentPage  int                     `json:"current_page"`
	SearchURL    string                  `json:"search_url"`
}

// ScrapedImage is a single product image reference.
type ScrapedImage struct {
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
	IsPrimary bool   `json:"is_primary,omitempty"`
}

// ScrapedSpecification is one (label, value) row from a spec table.
type ScrapedSpecification struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StampMetadata fills the bookkeeping metadata on a product. originalURL is
// the URL the caller passed in (before any provider-side canonicalisation).
func (p *ScrapedProduct) StampMetadata(originalURL string, at time.Time) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]string, 2)
	}
	p.Metadata["scraped_at"] = at.UTC().Format(time.RFC3339)
	p.Metadata["original_url"] = originalURL
}
