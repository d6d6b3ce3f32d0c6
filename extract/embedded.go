package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ScriptRules describe one site's embedded global-state payloads.
type ScriptRules struct {
	// Markers identify the scripts worth reading (global variable names
	// the site assigns its page state to, e.g. "g_page_config").
	Markers []string

	// Fields maps the parsed payload exactly like a captured network
	// response; the item lists live under the same container keys.
	Fields NetworkRules

	// IDPattern harvests bare item identifiers out of a matched script
	// when the payload is not strict JSON. Submatch 1 is the id.
	IDPattern *regexp.Regexp

	// PlaceholderName names the synthesized minimal summaries.
	PlaceholderName func(id string) string
}

// SummariesFromScripts runs the embedded-data strategy: locate scripts
// carrying a known global-state marker, strict-parse the assigned JSON
// object, and map its item lists. When the payload will not parse, the
// fallback extracts item identifiers by pattern and synthesizes minimal
// summaries (placeholder name, price 0). Script text is never executed.
func SummariesFromScripts(doc *goquery.Document, rules ScriptRules) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		marker := matchingMarker(text, rules.Markers)
		if marker == "" {
			return
		}

		if payload := jsonAfterMarker(text, marker); payload != "" {
			var root any
			if err := json.Unmarshal([]byte(payload), &root); err == nil {
				for _, list := range findItemLists(root, rules.Fields.ListKeys, 0) {
					for _, entry := range list {
						item, ok := entry.(map[string]any)
						if !ok {
							continue
						}
						if c, ok := candidateFromItem(item, rules.Fields); ok {
							c.Source = SourceScript
							if _, dup := seen[c.Summary.ProductURL]; dup {
								continue
							}
							seen[c.Summary.ProductURL] = struct{}{}
							out = append(out, c)
						}
					}
				}
				return
			}
		}

		// Strict parse failed — salvage the identifiers alone.
		out = append(out, synthesizeFromIDs(text, rules, seen)...)
	})

	return out
}

func matchingMarker(text string, markers []string) string {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return m
		}
	}
	return ""
}

// jsonAfterMarker returns the balanced JSON object literal assigned to
// the marker ("marker = {...}"), or "" when none is found. The scan is
// string-aware so braces inside string values do not end the object.
func jsonAfterMarker(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	start := strings.IndexByte(text[idx:], '{')
	if start < 0 {
		return ""
	}
	start += idx

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func synthesizeFromIDs(text string, rules ScriptRules, seen map[string]struct{}) []Candidate {
	if rules.IDPattern == nil {
		return nil
	}

	var out []Candidate
	for _, m := range rules.IDPattern.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			continue
		}
		id := m[1]
		if rules.Fields.ProductURL == nil {
			continue
		}
		productURL := rules.Fields.ProductURL(id)
		if _, dup := seen[productURL]; dup {
			continue
		}
		seen[productURL] = struct{}{}

		name := "Item " + id
		if rules.PlaceholderName != nil {
			name = rules.PlaceholderName(id)
		}
		out = append(out, Candidate{
			Source:  SourceScript,
			Summary: summaryFrom(name, productURL, "", 0, 0, 0, ""),
		})
	}
	return out
}
