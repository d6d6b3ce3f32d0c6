// Package extract implements the strategy chain that turns adversarial,
// unstable page markup into canonical product records. Each strategy
// (network interception, embedded script data, DOM selectors) produces
// candidates independently; Merge reconciles them.
package extract

import "github.com/use-agent/harvest/models"

// Source tags which strategy produced a candidate. Order is merge
// precedence: richer, more-structured sources win on productUrl
// collisions.
type Source int

const (
	SourceNetwork Source = iota // intercepted API responses
	SourceScript                // embedded script/global-state JSON
	SourceDOM                   // CSS container extraction
)

func (s Source) String() string {
	switch s {
	case SourceNetwork:
		return "network"
	case SourceScript:
		return "script"
	default:
		return "dom"
	}
}

// Candidate is one summary with its provenance.
type Candidate struct {
	Source  Source
	Summary models.ScrapedProductSummary
}

// Merge concatenates candidates in source-precedence order (network,
// then script, then DOM) and deduplicates by ProductURL, first
// occurrence winning. Candidates without a ProductURL are dropped —
// a summary the caller cannot navigate to is useless. Within one
// source, discovery order is preserved. Merge is idempotent.
func Merge(candidates []Candidate) []models.ScrapedProductSummary {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]models.ScrapedProductSummary, 0, len(candidates))

	for _, source := range []Source{SourceNetwork, SourceScript, SourceDOM} {
		for _, c := range candidates {
			if c.Source != source {
				continue
			}
			url := c.Summary.ProductURL
			if url == "" {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			out = append(out, c.Summary)
		}
	}
	return out
}
