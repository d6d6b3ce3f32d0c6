package extract

import (
	"strings"
	"testing"

	"github.com/use-agent/harvest/models"
)

func TestFinishProduct(t *testing.T) {
	p := &models.ScrapedProduct{
		Name:         "  " + strings.Repeat("x", 400) + "  ",
		Brand:        "Visit the Acme Store",
		ProductPrice: 100,
		OfferPrice:   80, // lower than charged price, must be lifted
		Rating:       7,
		ReviewCount:  -3,
	}

	got := FinishProduct(p, "https://www.example.com/dp/X1")

	if len(got.Name) != 300 {
		t.Errorf("name length = %d, want clamped to 300", len(got.Name))
	}
	if got.Brand != "Acme" {
		t.Errorf("brand = %q", got.Brand)
	}
	if got.OfferPrice != 100 {
		t.Errorf("offer price = %v, want lifted to product price", got.OfferPrice)
	}
	if got.Rating != 5 {
		t.Errorf("rating = %v, want clamped to 5", got.Rating)
	}
	if got.ReviewCount != 0 {
		t.Errorf("review count = %d, want 0", got.ReviewCount)
	}

	if got.Metadata["original_url"] != "https://www.example.com/dp/X1" {
		t.Errorf("original_url = %q", got.Metadata["original_url"])
	}
	if got.Metadata["scraped_at"] == "" {
		t.Error("scraped_at not stamped")
	}
}

func TestFinishSearch(t *testing.T) {
	summaries := []models.ScrapedProductSummary{
		{Name: "A", ProductURL: "https://example.com/1", ProductPrice: 50, OfferPrice: 30},
		{Name: "B", ProductURL: "https://example.com/2", ProductPrice: 20, OfferPrice: 25},
	}

	got := FinishSearch(summaries, "https://example.com/s?k=q", 0)

	if got.TotalResults != 2 {
		t.Errorf("total = %d", got.TotalResults)
	}
	if got.CurrentPage != 1 {
		t.Errorf("page = %d, want clamped to 1", got.CurrentPage)
	}
	if got.SearchURL != "https://example.com/s?k=q" {
		t.Errorf("search URL = %q", got.SearchURL)
	}
	if got.Products[0].OfferPrice != 50 {
		t.Errorf("offer lifted: got %v", got.Products[0].OfferPrice)
	}
	if got.Products[1].OfferPrice != 25 {
		t.Errorf("higher offer preserved: got %v", got.Products[1].OfferPrice)
	}
}

func TestFinishSearch_NilSummaries(t *testing.T) {
	got := FinishSearch(nil, "https://example.com/s", 2)
	if got.Products == nil {
		t.Fatal("products must be an empty slice, not nil")
	}
	if len(got.Products) != 0 || got.TotalResults != 0 {
		t.Errorf("unexpected contents: %+v", got)
	}
	if got.CurrentPage != 2 {
		t.Errorf("page = %d", got.CurrentPage)
	}
}
