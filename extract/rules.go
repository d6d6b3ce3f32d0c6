package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule is one candidate extraction step: a CSS selector plus the
// attribute to read from the first match. An empty Attr means the
// element's trimmed text.
type Rule struct {
	Selector string
	Attr     string
}

// FirstMatch evaluates rules in order against sel and returns the first
// non-empty value. This single helper replaces per-field hand-written
// selector cascades.
func FirstMatch(sel *goquery.Selection, rules []Rule) string {
	for _, r := range rules {
		found := sel.Find(r.Selector).First()
		if found.Length() == 0 {
			continue
		}
		var v string
		if r.Attr == "" {
			v = strings.TrimSpace(found.Text())
		} else {
			v, _ = found.Attr(r.Attr)
			v = strings.TrimSpace(v)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// ListRules is the declarative description of "a product card" on one
// site's search page: candidate container selectors plus per-field rule
// cascades evaluated inside each matched container.
type ListRules struct {
	// Containers are tried in order; the first selector with matches
	// defines the card set.
	Containers []string

	Name    []Rule
	URL     []Rule
	Image   []Rule
	Price   []Rule
	Rating  []Rule
	Reviews []Rule
	Brand   []Rule

	// BaseURL absolutises relative product links.
	BaseURL string
}

// SummariesFromDOM runs the DOM strategy: the first container selector
// with matches yields one candidate per card, each field taken by its
// rule cascade. Cards without a resolvable product URL are skipped
// (dedup later keys on it).
func SummariesFromDOM(doc *goquery.Document, rules ListRules) []Candidate {
	var cards *goquery.Selection
	for _, container := range rules.Containers {
		found := doc.Find(container)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var out []Candidate
	cards.Each(func(_ int, card *goquery.Selection) {
		href := FirstMatch(card, rules.URL)
		productURL := absoluteURL(rules.BaseURL, href)
		if productURL == "" {
			return
		}

		price, _ := ParsePrice(FirstMatch(card, rules.Price))
		rating := parseRating(FirstMatch(card, rules.Rating))
		reviews := parseCount(FirstMatch(card, rules.Reviews))

		out = append(out, Candidate{
			Source: SourceDOM,
			Summary: summaryFrom(
				FirstMatch(card, rules.Name),
				productURL,
				absoluteURL(rules.BaseURL, FirstMatch(card, rules.Image)),
				price,
				rating,
				reviews,
				FirstMatch(card, rules.Brand),
			),
		})
	})
	return out
}

// absoluteURL resolves href against base. Scheme-relative and absolute
// hrefs pass through; anything unparsable yields "".
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return href
	}
	if base == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(u).String()
}
