package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NetworkRules describe how to read one site's intercepted API
// responses. Field aliases are tried in order; the first present,
// non-empty key wins — upstream payloads rename fields freely between
// page versions, so every field is a tolerant alias set.
type NetworkRules struct {
	// ListKeys are the container keys holding the item array
	// (e.g. "itemList", "auctions").
	ListKeys []string

	NameKeys    []string
	URLKeys     []string
	IDKeys      []string
	PriceKeys   []string
	ImageKeys   []string
	RatingKeys  []string
	ReviewsKeys []string
	BrandKeys   []string

	// ProductURL builds a detail URL when only an item id is present.
	ProductURL func(id string) string

	// BaseURL absolutises relative URLs from the payload.
	BaseURL string
}

// SummariesFromJSON parses one captured response body and maps every
// entry of every recognised item list. A body that is not JSON, or
// holds no recognised list, yields nothing — the strategy is skipped,
// never fatal.
func SummariesFromJSON(body []byte, rules NetworkRules) []Candidate {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil
	}

	var out []Candidate
	for _, list := range findItemLists(root, rules.ListKeys, 0) {
		for _, entry := range list {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if c, ok := candidateFromItem(item, rules); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// maxListDepth bounds the recursive container search; real payloads
// nest the item array a handful of levels down at most.
const maxListDepth = 8

// findItemLists walks the JSON tree and returns every array sitting
// under one of the known list-container keys, in document order.
func findItemLists(node any, listKeys []string, depth int) [][]any {
	if depth > maxListDepth {
		return nil
	}

	var lists [][]any
	switch v := node.(type) {
	case map[string]any:
		for _, key := range listKeys {
			if arr, ok := v[key].([]any); ok {
				lists = append(lists, arr)
			}
		}
		for _, child := range v {
			lists = append(lists, findItemLists(child, listKeys, depth+1)...)
		}
	case []any:
		for _, child := range v {
			lists = append(lists, findItemLists(child, listKeys, depth+1)...)
		}
	}
	return lists
}

func candidateFromItem(item map[string]any, rules NetworkRules) (Candidate, bool) {
	productURL := absoluteURL(rules.BaseURL, firstStringAlias(item, rules.URLKeys))
	if productURL == "" {
		id := firstStringAlias(item, rules.IDKeys)
		if id != "" && rules.ProductURL != nil {
			productURL = rules.ProductURL(id)
		}
	}
	if productURL == "" {
		return Candidate{}, false
	}

	price, _ := ParsePrice(firstStringAlias(item, rules.PriceKeys))
	return Candidate{
		Source: SourceNetwork,
		Summary: summaryFrom(
			firstStringAlias(item, rules.NameKeys),
			productURL,
			absoluteURL(rules.BaseURL, firstStringAlias(item, rules.ImageKeys)),
			price,
			parseRating(firstStringAlias(item, rules.RatingKeys)),
			parseCount(firstStringAlias(item, rules.ReviewsKeys)),
			firstStringAlias(item, rules.BrandKeys),
		),
	}, true
}

// firstStringAlias returns the first alias key whose value renders to a
// non-empty string. Numbers are formatted, nested one-level lookups are
// supported via "a.b" keys.
func firstStringAlias(item map[string]any, keys []string) string {
	for _, key := range keys {
		node := item
		rest := key
		for {
			dot := strings.IndexByte(rest, '.')
			if dot < 0 {
				break
			}
			child, ok := node[rest[:dot]].(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = child
			rest = rest[dot+1:]
		}
		if node == nil {
			continue
		}
		if s := stringify(node[rest]); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
