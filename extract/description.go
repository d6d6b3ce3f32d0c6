package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// maxDescriptionLen clamps stored descriptions; product pages bury
// whole manuals in the description block.
const maxDescriptionLen = 4000

// minReadableLen is the threshold below which a readability result is
// treated as a miss.
const minReadableLen = 50

var mdConverter = sync.OnceValue(newMarkdownConverter)

// newMarkdownConverter builds the reusable, goroutine-safe converter:
// base plugin strips script/style/meta noise, commonmark renders
// standard Markdown, and the table plugin keeps spec tables readable.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// extractDescription resolves the product description: the first
// matching selector's HTML converted to Markdown, or — when every
// selector misses — the readability-extracted main content of the page.
func extractDescription(root *goquery.Selection, pageHTML, sourceURL string, rules []Rule) string {
	for _, r := range rules {
		el := root.Find(r.Selector).First()
		if el.Length() == 0 {
			continue
		}
		inner, err := el.Html()
		if err != nil || strings.TrimSpace(inner) == "" {
			continue
		}
		md, err := mdConverter().ConvertString(inner, converter.WithDomain(domainOf(sourceURL)))
		if err != nil {
			// Converter choked on the fragment; plain text still serves.
			md = el.Text()
		}
		if md = strings.TrimSpace(md); md != "" {
			return clampText(md, maxDescriptionLen)
		}
	}

	return readableFallback(pageHTML, sourceURL)
}

// readableFallback runs the Mozilla readability algorithm over the full
// page and keeps its text content. Misses yield an empty description —
// a valid outcome, not an error.
func readableFallback(pageHTML, sourceURL string) string {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(pageHTML), parsedURL)
	if err != nil {
		slog.Debug("readability description fallback failed", "url", sourceURL, "error", err)
		return ""
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) < minReadableLen {
		return ""
	}
	return clampText(text, maxDescriptionLen)
}

func domainOf(rawURL string) string {
	u, err := nurl.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// clampText truncates at a rune boundary.
func clampText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
