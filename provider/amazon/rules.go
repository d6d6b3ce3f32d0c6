package amazon

import (
	"regexp"
	"strings"

	"github.com/use-agent/harvest/extract"
)

// domains lists every Amazon marketplace the provider claims.
var domains = []string{
	"amazon.com",
	"amazon.in",
	"amazon.co.uk",
	"amazon.de",
	"amazon.fr",
	"amazon.it",
	"amazon.es",
	"amazon.ca",
	"amazon.com.au",
	"amazon.co.jp",
}

// asinPattern matches the 10-character ASIN in detail-page URLs.
var asinPattern = regexp.MustCompile(`(?i)/(?:dp|gp/product)/([A-Z0-9]{10})`)

// searchListRules is the DOM strategy table for result pages. The
// container list tracks Amazon's rotating search layouts; sub-selector
// cascades follow suit.
var searchListRules = extract.ListRules{
	Containers: []string{
		`div[data-component-type="s-search-result"]`,
		`div.s-result-item[data-asin]`,
		`div.s-card-container`,
	},
	Name: []extract.Rule{
		{Selector: "h2 a span"},
		{Selector: "h2 span"},
		{Selector: ".a-size-medium.a-color-base.a-text-normal"},
	},
	URL: []extract.Rule{
		{Selector: "h2 a", Attr: "href"},
		{Selector: "a.a-link-normal.s-no-outline", Attr: "href"},
		{Selector: "a.a-link-normal", Attr: "href"},
	},
	Image: []extract.Rule{
		{Selector: "img.s-image", Attr: "src"},
		{Selector: ".s-product-image-container img", Attr: "src"},
	},
	Price: []extract.Rule{
		{Selector: ".a-price .a-offscreen"},
		{Selector: ".a-price-whole"},
		{Selector: ".a-color-price"},
	},
	Rating: []extract.Rule{
		{Selector: "span.a-icon-alt"},
		{Selector: "i.a-icon-star-small span"},
	},
	Reviews: []extract.Rule{
		{Selector: "span.a-size-base.s-underline-text"},
		{Selector: ".a-link-normal .a-size-base"},
	},
}

// searchNetworkRules maps the s/query AJAX payloads Amazon streams on
// scroll and pagination.
var searchNetworkRules = extract.NetworkRules{
	ListKeys:    []string{"results", "searchResults", "products", "itemList"},
	NameKeys:    []string{"title", "name", "productTitle"},
	URLKeys:     []string{"detailPageUrl", "url", "link"},
	IDKeys:      []string{"asin", "id"},
	PriceKeys:   []string{"price", "priceAmount", "displayPrice", "price.displayString"},
	ImageKeys:   []string{"imageUrl", "image", "mainImageUrl"},
	RatingKeys:  []string{"averageRating", "rating", "stars"},
	ReviewsKeys: []string{"reviewCount", "totalReviewCount", "ratingsCount"},
	BrandKeys:   []string{"brand", "byLine"},
}

// searchScriptRules reads the embedded search state some layouts ship
// instead of rendering server-side; the ASIN fallback covers payloads
// that are assembled rather than assigned as one literal.
var searchScriptRules = extract.ScriptRules{
	Markers:   []string{"window.searchState", "s-search-metadata", "asinOnPage"},
	IDPattern: regexp.MustCompile(`"asin"\s*:\s*"([A-Z0-9]{10})"`),
}

var harvestRules = extract.HarvestRules{
	LinkPattern: asinPattern,
}

// productRules is the detail-page field table.
var productRules = extract.ProductRules{
	Name: []extract.Rule{
		{Selector: "#productTitle"},
		{Selector: "#title span"},
	},
	Price: []extract.Rule{
		{Selector: "#corePrice_feature_div .a-price .a-offscreen"},
		{Selector: ".a-price .a-offscreen"},
		{Selector: "#priceblock_ourprice"},
		{Selector: "#priceblock_dealprice"},
		{Selector: ".a-price-whole"},
	},
	StrikePrice: []extract.Rule{
		{Selector: ".basisPrice .a-text-price .a-offscreen"},
		{Selector: "span.a-price.a-text-price[data-a-strike] .a-offscreen"},
		{Selector: ".a-text-price .a-offscreen"},
		{Selector: "#listPrice"},
	},
	Byline: []extract.Rule{
		{Selector: "#bylineInfo"},
		{Selector: "a#brand"},
		{Selector: "#brandByline_feature_div a"},
	},
	Description: []extract.Rule{
		{Selector: "#productDescription"},
		{Selector: "#feature-bullets"},
		{Selector: "#aplus_feature_div"},
	},
	AboutBlock: []extract.Rule{
		{Selector: "#feature-bullets"},
		{Selector: "#productOverview_feature_div"},
	},
	Stock: []extract.Rule{
		{Selector: "#availability span"},
		{Selector: "#availability"},
		{Selector: "#outOfStock"},
	},
	Rating: []extract.Rule{
		{Selector: "#acrPopover", Attr: "title"},
		{Selector: "span.a-icon-alt"},
	},
	Reviews: []extract.Rule{
		{Selector: "#acrCustomerReviewText"},
		{Selector: "#averageCustomerReviews .a-size-base"},
	},
	Images: []extract.ImageRule{
		{Selector: "#imgTagWrapperId img", Attrs: []string{"data-old-hires", "src"}},
		{Selector: "#landingImage", Attrs: []string{"data-old-hires", "src"}},
		{Selector: "#altImages img", Attrs: []string{"src"}},
	},
	Specs: []extract.SpecRule{
		{
			Rows:  "#productDetails_techSpec_section_1 tr",
			Label: []extract.Rule{{Selector: "th"}},
			Value: []extract.Rule{{Selector: "td"}},
		},
		{
			Rows:  "#productDetails_detailBullets_sections1 tr",
			Label: []extract.Rule{{Selector: "th"}},
			Value: []extract.Rule{{Selector: "td"}},
		},
		{
			Rows:      "#detailBullets_feature_div li",
			InlineSep: ":",
		},
		{
			Rows:  "table.a-keyvalue tr",
			Label: []extract.Rule{{Selector: "th"}},
			Value: []extract.Rule{{Selector: "td"}},
		},
	},
	OutOfStockMarkers: []string{"unavailable", "out of stock"},
	BrandSpecLabels:   []string{"brand", "manufacturer"},
	Platform:          platformName,
}

// enrichBylineRules is the minimal field set fetched in the brand
// enrichment pass.
var enrichBylineRules = []extract.Rule{
	{Selector: "#bylineInfo"},
	{Selector: "a#brand"},
	{Selector: "#brandByline_feature_div a"},
}

// robotMarkers identify Amazon's captcha interstitial.
var robotMarkers = []string{
	"enter the characters you see below",
	"sorry, we just need to make sure you're not a robot",
	"type the characters you see in this image",
}

// searchAPIPath recognises the AJAX search endpoints worth capturing.
func isSearchAPI(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "/s/query") ||
		(strings.Contains(lower, "amazon.") && strings.Contains(lower, "search") && strings.Contains(lower, "ajax"))
}
