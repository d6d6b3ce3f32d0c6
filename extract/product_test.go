package extract

import (
	"strings"
	"testing"
)

func productTestRules() ProductRules {
	return ProductRules{
		Name:        []Rule{{Selector: "#title"}},
		Price:       []Rule{{Selector: ".current-price"}},
		StrikePrice: []Rule{{Selector: ".was-price"}},
		Byline:      []Rule{{Selector: "#byline"}},
		Description: []Rule{{Selector: "#desc"}},
		Stock:       []Rule{{Selector: "#availability"}},
		Rating:      []Rule{{Selector: ".rating"}},
		Reviews:     []Rule{{Selector: ".rating-count"}},
		Images: []ImageRule{
			{Selector: "#main-image", Attrs: []string{"data-src", "src"}},
			{Selector: ".thumb img", Attrs: []string{"src"}},
		},
		Specs: []SpecRule{
			{Rows: ".spec-table tr", Label: []Rule{{Selector: "th"}}, Value: []Rule{{Selector: "td"}}},
			{Rows: ".attr-list li", InlineSep: ":"},
		},
		OutOfStockMarkers: []string{"currently unavailable"},
		BrandSpecLabels:   []string{"brand"},
		BaseURL:           "https://www.example.com",
		Platform:          "example",
	}
}

const productTestHTML = `
<html><body>
  <h1 id="title">  Acme Stand Mixer 5L  </h1>
  <span class="current-price">$1,234.99</span>
  <span class="was-price">$1,499.00</span>
  <div id="byline">Visit the Acme Store</div>
  <img id="main-image" data-src="https://img.example.com/mixer-main.jpg" src="data:placeholder">
  <div class="thumb"><img src="/images/mixer-side.jpg"></div>
  <div class="thumb"><img src="https://img.example.com/mixer-main.jpg"></div>
  <table class="spec-table">
    <tr><th>Brand</th><td>Acme</td></tr>
    <tr><th>Capacity</th><td>5 Litres</td></tr>
  </table>
  <ul class="attr-list">
    <li>Color: Silver</li>
  </ul>
  <div id="desc"><p>Planetary mixing action with ten speeds.</p></div>
  <span class="rating">4.7 out of 5 stars</span>
  <span class="rating-count">2,341 ratings</span>
  <div id="availability">In Stock</div>
</body></html>`

func TestProductFromDOM(t *testing.T) {
	doc := docFrom(t, productTestHTML)
	p := ProductFromDOM(doc, productTestHTML, "https://www.example.com/dp/X1", productTestRules())

	if p.Name != "Acme Stand Mixer 5L" {
		t.Errorf("name = %q", p.Name)
	}
	// Discounted listing: charged price vs struck-through original.
	if p.ProductPrice != 1234.99 {
		t.Errorf("product price = %v, want 1234.99", p.ProductPrice)
	}
	if p.OfferPrice != 1499.00 {
		t.Errorf("offer price = %v, want 1499.00", p.OfferPrice)
	}
	if p.Brand != "Acme" {
		t.Errorf("brand = %q, want Acme (from spec row)", p.Brand)
	}
	if p.SourcePlatform != "example" {
		t.Errorf("platform = %q", p.SourcePlatform)
	}
	if p.Rating != 4.7 {
		t.Errorf("rating = %v", p.Rating)
	}
	if p.ReviewCount != 2341 {
		t.Errorf("review count = %d", p.ReviewCount)
	}
	if !p.InStock {
		t.Error("expected in stock")
	}
	if !strings.Contains(p.Description, "Planetary mixing action") {
		t.Errorf("description = %q", p.Description)
	}

	if len(p.Specifications) != 3 {
		t.Fatalf("expected 3 spec rows, got %d: %+v", len(p.Specifications), p.Specifications)
	}
	if p.Specifications[0].Label != "Brand" || p.Specifications[0].Value != "Acme" {
		t.Errorf("first spec = %+v", p.Specifications[0])
	}
	if p.Specifications[2].Label != "Color" || p.Specifications[2].Value != "Silver" {
		t.Errorf("inline spec = %+v", p.Specifications[2])
	}

	if len(p.Images) != 2 {
		t.Fatalf("expected 2 deduplicated images, got %d", len(p.Images))
	}
	if p.Images[0].URL != "https://img.example.com/mixer-main.jpg" || !p.Images[0].IsPrimary {
		t.Errorf("primary image = %+v", p.Images[0])
	}
	if p.Images[1].URL != "https://www.example.com/images/mixer-side.jpg" {
		t.Errorf("second image = %+v", p.Images[1])
	}
	if p.Images[1].IsPrimary {
		t.Error("only the first image is primary")
	}
}

func TestProductFromDOM_OutOfStock(t *testing.T) {
	page := `<html><body>
		<h1 id="title">Gone Item</h1>
		<div id="availability">Currently unavailable.</div>
	</body></html>`

	p := ProductFromDOM(docFrom(t, page), page, "https://www.example.com/dp/X2", productTestRules())
	if p.InStock {
		t.Error("expected out of stock")
	}
}

func TestProductFromDOM_PriceFromFullText(t *testing.T) {
	// No price selector matches; the currency-adjacent fallback runs.
	page := `<html><body>
		<h1 id="title">Text Price Item</h1>
		<p>Limited time deal at $89.99 with free shipping.</p>
	</body></html>`

	p := ProductFromDOM(docFrom(t, page), page, "https://www.example.com/dp/X3", productTestRules())
	if p.ProductPrice != 89.99 {
		t.Errorf("fallback price = %v, want 89.99", p.ProductPrice)
	}
	if p.OfferPrice != 89.99 {
		t.Errorf("single price fills both fields, offer = %v", p.OfferPrice)
	}
}
