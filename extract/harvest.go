package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// HarvestRules describe how to synthesize summaries from raw product
// links when every container selector has drifted.
type HarvestRules struct {
	// LinkPattern matches a product link href; submatch 1 is the item
	// identifier.
	LinkPattern *regexp.Regexp

	// ProductURL builds a canonical detail URL from an item id.
	ProductURL func(id string) string

	// PlaceholderName builds the human-readable stand-in name.
	PlaceholderName func(id string) string
}

var anchorSel = cascadia.MustCompile("a[href]")
var imgSel = cascadia.MustCompile("img[src]")

// HarvestLinks is the guarantee that markup drift still yields
// something: it scans every anchor for product-link identifiers and
// synthesizes one minimal summary per unique id (placeholder name,
// price 0). The closest ancestor carrying a class stands in for the
// product card and may contribute an image; the link itself is the
// fallback container.
func HarvestLinks(rawHTML string, rules HarvestRules) []Candidate {
	if rules.LinkPattern == nil {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []Candidate

	for _, anchor := range cascadia.QueryAll(doc, anchorSel) {
		href := attrValue(anchor, "href")
		m := rules.LinkPattern.FindStringSubmatch(href)
		if len(m) < 2 {
			continue
		}
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		container := closestClassedAncestor(anchor)
		image := ""
		if img := cascadia.Query(container, imgSel); img != nil {
			image = attrValue(img, "src")
		}

		name := fmt.Sprintf("Item %s", id)
		if rules.PlaceholderName != nil {
			name = rules.PlaceholderName(id)
		}
		productURL := href
		if rules.ProductURL != nil {
			productURL = rules.ProductURL(id)
		}

		out = append(out, Candidate{
			Source:  SourceDOM,
			Summary: summaryFrom(name, productURL, image, 0, 0, 0, ""),
		})
	}
	return out
}

// closestClassedAncestor walks up from the anchor to the nearest element
// with a class attribute, which usually is the product card wrapper.
// Returns the anchor itself when nothing classed encloses it.
func closestClassedAncestor(n *html.Node) *html.Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if attrValue(cur, "class") != "" {
			return cur
		}
	}
	return n
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
