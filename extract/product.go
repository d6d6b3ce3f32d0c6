package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/harvest/models"
)

// ImageRule selects product images: every element matching Selector
// contributes its first non-empty attribute among Attrs.
type ImageRule struct {
	Selector string
	Attrs    []string
}

// SpecRule extracts (label, value) pairs. Row-style tables use the
// Label/Value cascades inside each row; inline lists ("品牌: Apple")
// split the row text on InlineSep instead.
type SpecRule struct {
	Rows      string
	Label     []Rule
	Value     []Rule
	InlineSep string
}

// ProductRules is the declarative field table for one site's product
// detail page. Every cascade follows the first-non-empty-candidate
// policy.
type ProductRules struct {
	Name        []Rule
	Price       []Rule
	StrikePrice []Rule
	Byline      []Rule
	Description []Rule
	AboutBlock  []Rule
	Stock       []Rule
	Rating      []Rule
	Reviews     []Rule

	Images []ImageRule
	Specs  []SpecRule

	// OutOfStockMarkers flip InStock when found in the stock text.
	OutOfStockMarkers []string

	// BrandSpecLabels are the spec-table labels that carry the brand.
	BrandSpecLabels []string

	BaseURL  string
	Platform string
}

// maxProductImages bounds the gallery; thumbnail strips repeat
// endlessly on some sites.
const maxProductImages = 10

// ProductFromDOM runs the single-product extraction over a rendered
// page. pageHTML is the same document as doc, kept for the full-text
// price fallback and the readability description fallback.
func ProductFromDOM(doc *goquery.Document, pageHTML, sourceURL string, rules ProductRules) *models.ScrapedProduct {
	root := doc.Selection

	p := &models.ScrapedProduct{
		Name:           FirstMatch(root, rules.Name),
		SourceURL:      sourceURL,
		SourcePlatform: rules.Platform,
		InStock:        true,
	}

	// ── Prices ──────────────────────────────────────────────────────
	detected, ok := ParsePrice(FirstMatch(root, rules.Price))
	if !ok {
		detected, _ = FindPriceInText(root.Text())
	}
	struck, _ := ParsePrice(FirstMatch(root, rules.StrikePrice))
	p.ProductPrice, p.OfferPrice = ResolvePrices(detected, struck)

	// ── Specifications ──────────────────────────────────────────────
	p.Specifications = extractSpecs(root, rules.Specs)

	// ── Brand ───────────────────────────────────────────────────────
	p.Brand = resolveBrand(root, p, rules)

	// ── Description ─────────────────────────────────────────────────
	p.Description = extractDescription(root, pageHTML, sourceURL, rules.Description)

	// ── Images ──────────────────────────────────────────────────────
	p.Images = extractImages(root, rules)

	// ── Rating / reviews / stock ────────────────────────────────────
	p.Rating = parseRating(FirstMatch(root, rules.Rating))
	p.ReviewCount = parseCount(FirstMatch(root, rules.Reviews))

	if stockText := strings.ToLower(FirstMatch(root, rules.Stock)); stockText != "" {
		for _, marker := range rules.OutOfStockMarkers {
			if strings.Contains(stockText, strings.ToLower(marker)) {
				p.InStock = false
				break
			}
		}
	}

	return p
}

// resolveBrand applies the brand-source ordering: About-block pattern,
// spec rows labelled as brand, byline/vendor link, then a brand-like
// first word of the name as the last resort.
func resolveBrand(root *goquery.Selection, p *models.ScrapedProduct, rules ProductRules) string {
	if about := FirstMatch(root, rules.AboutBlock); about != "" {
		if b := BrandFromText(about); b != "" {
			return b
		}
	}

	for _, spec := range p.Specifications {
		label := strings.ToLower(spec.Label)
		for _, want := range rules.BrandSpecLabels {
			if strings.Contains(label, strings.ToLower(want)) && spec.Value != "" {
				return CleanBrand(spec.Value)
			}
		}
	}

	if byline := FirstMatch(root, rules.Byline); byline != "" {
		if b := CleanBrand(byline); b != "" {
			return b
		}
	}

	return BrandFromName(p.Name)
}

func extractSpecs(root *goquery.Selection, specRules []SpecRule) []models.ScrapedSpecification {
	var specs []models.ScrapedSpecification
	for _, rule := range specRules {
		root.Find(rule.Rows).Each(func(_ int, row *goquery.Selection) {
			var label, value string
			if rule.InlineSep != "" {
				parts := strings.SplitN(row.Text(), rule.InlineSep, 2)
				if len(parts) == 2 {
					label, value = parts[0], parts[1]
				}
			} else {
				label = FirstMatch(row, rule.Label)
				value = FirstMatch(row, rule.Value)
			}
			label = strings.TrimSpace(label)
			value = strings.TrimSpace(value)
			if label != "" && value != "" {
				specs = append(specs, models.ScrapedSpecification{Label: label, Value: value})
			}
		})
	}
	return specs
}

func extractImages(root *goquery.Selection, rules ProductRules) []models.ScrapedImage {
	seen := make(map[string]struct{})
	var images []models.ScrapedImage

	for _, rule := range rules.Images {
		root.Find(rule.Selector).Each(func(_ int, el *goquery.Selection) {
			if len(images) >= maxProductImages {
				return
			}
			var src string
			for _, attr := range rule.Attrs {
				if v, ok := el.Attr(attr); ok && strings.TrimSpace(v) != "" {
					src = strings.TrimSpace(v)
					break
				}
			}
			src = absoluteURL(rules.BaseURL, src)
			if src == "" {
				return
			}
			if _, dup := seen[src]; dup {
				return
			}
			seen[src] = struct{}{}
			images = append(images, models.ScrapedImage{
				URL:       src,
				IsPrimary: len(images) == 0, // first extracted image is primary
			})
		})
	}
	return images
}
