package amazon

import (
	"testing"
	"time"

	"github.com/use-agent/harvest/config"
)

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		DefaultTimeout:     60 * time.Second,
		MaxTimeout:         300 * time.Second,
		NavigationTimeout:  30 * time.Second,
		NavigationAttempts: 3,
		EnrichmentLimit:    20,
		EnrichmentDelay:    2 * time.Second,
	}
}

func TestCanScrape(t *testing.T) {
	p := New(nil, testScraperConfig(), false)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"product page", "https://www.amazon.com/dp/B0CX23V2ZK", true},
		{"search page", "https://www.amazon.com/s?k=laptop", true},
		{"indian marketplace bare", "amazon.in", true},
		{"indian marketplace full", "https://www.amazon.in/s?k=phone", true},
		{"uk marketplace", "https://www.amazon.co.uk/dp/B000000000", true},
		{"case insensitive", "HTTPS://WWW.AMAZON.DE/dp/X", true},
		{"unrelated", "https://www.taobao.com/item?id=1", false},
		{"lookalike", "https://amazon.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanScrape(tt.url); got != tt.want {
				t.Errorf("CanScrape(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestAsinPattern(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"dp form", "https://www.amazon.com/dp/B0CX23V2ZK", "B0CX23V2ZK"},
		{"dp with title slug", "https://www.amazon.com/Some-Product-Name/dp/B0CX23V2ZK/ref=sr_1_1", "B0CX23V2ZK"},
		{"gp product form", "https://www.amazon.com/gp/product/1234567890", "1234567890"},
		{"lowercase path", "https://www.amazon.com/DP/b0cx23v2zk", "b0cx23v2zk"},
		{"no asin", "https://www.amazon.com/s?k=laptop", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := asinPattern.FindStringSubmatch(tt.url)
			got := ""
			if len(m) == 2 {
				got = m[1]
			}
			if got != tt.want {
				t.Errorf("asin from %q = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsRobotPage(t *testing.T) {
	if !isRobotPage(`<html><body>Sorry, we just need to make sure you're not a robot.</body></html>`) {
		t.Error("captcha interstitial not detected")
	}
	if isRobotPage(`<html><body><span id="productTitle">Robot Vacuum Cleaner</span></body></html>`) {
		t.Error("product about robots misdetected as interstitial")
	}
}

func TestIsSearchAPI(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.amazon.com/s/query?k=laptop&page=2", true},
		{"https://www.amazon.in/s/query?k=phone", true},
		{"https://www.amazon.com/dp/B0CX23V2ZK", false},
		{"https://images-na.ssl-images-amazon.com/x.jpg", false},
	}
	for _, tt := range tests {
		if got := isSearchAPI(tt.url); got != tt.want {
			t.Errorf("isSearchAPI(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestPageFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://www.amazon.com/s?k=laptop&page=3", 3},
		{"https://www.amazon.com/s?k=laptop", 1},
		{"https://www.amazon.com/s?k=laptop&page=0", 1},
		{"https://www.amazon.com/s?k=laptop&page=junk", 1},
	}
	for _, tt := range tests {
		if got := pageFromURL(tt.url); got != tt.want {
			t.Errorf("pageFromURL(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestBaseURLOf(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.amazon.in/s?k=phone", "https://www.amazon.in"},
		{"https://www.amazon.co.jp/dp/X", "https://www.amazon.co.jp"},
		{"%%invalid%%", "https://www.amazon.com"},
	}
	for _, tt := range tests {
		if got := baseURLOf(tt.url); got != tt.want {
			t.Errorf("baseURLOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDetailURLAndPlaceholder(t *testing.T) {
	build := detailURL("https://www.amazon.in")
	if got := build("b0cx23v2zk"); got != "https://www.amazon.in/dp/B0CX23V2ZK" {
		t.Errorf("detailURL = %q", got)
	}
	if got := placeholderName("b0cx23v2zk"); got != "Amazon item B0CX23V2ZK" {
		t.Errorf("placeholderName = %q", got)
	}
}
