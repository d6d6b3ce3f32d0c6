package taobao

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
	}
}

func TestCanScrape(t *testing.T) {
	p := New(nil, testScraperConfig(), false)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"taobao search", "https://s.taobao.com/search?q=camera", true},
		{"taobao item", "https://item.taobao.com/item.htm?id=123456", true},
		{"tmall detail", "https://detail.tmall.com/item.htm?id=789", true},
		{"bare hostname", "taobao.com", true},
		{"unrelated", "https://www.amazon.com/dp/X", false},
		{"lookalike", "https://taobao.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanScrape(tt.url); got != tt.want {
				t.Errorf("CanScrape(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestItemIDOf(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://item.taobao.com/item.htm?id=674832915027", "674832915027"},
		{"https://detail.tmall.com/item.htm?spm=a21n57&id=98765", "98765"},
		{"https://item.taobao.com/item.htm?id=notanumber", ""},
		{"https://item.taobao.com/item.htm", ""},
	}
	for _, tt := range tests {
		if got := itemIDOf(tt.url); got != tt.want {
			t.Errorf("itemIDOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestItemIDPattern(t *testing.T) {
	href := `https://item.taobao.com/item.htm?spm=a21n57.1.item&id=674832915027&ns=1`
	m := itemIDPattern.FindStringSubmatch(href)
	if len(m) != 2 || m[1] != "674832915027" {
		t.Errorf("itemIDPattern on %q = %v", href, m)
	}

	if itemIDPattern.MatchString("https://www.taobao.com/markets/festival") {
		t.Error("non-item link should not match")
	}
}

func TestPageFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://s.taobao.com/search?q=x&page=4", 4},
		{"https://s.taobao.com/search?q=x&s=88", 3},
		{"https://s.taobao.com/search?q=x&s=44", 2},
		{"https://s.taobao.com/search?q=x", 1},
		{"https://s.taobao.com/search?q=x&s=0", 1},
	}
	for _, tt := range tests {
		if got := pageFromURL(tt.url); got != tt.want {
			t.Errorf("pageFromURL(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestIsSearchAPI(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://h5api.m.taobao.com/h5/mtop.relationrecommend.wirelessrecommend.recommend/2.0/", true},
		{"https://s.taobao.com/search?q=camera&ajax=true", true},
		{"https://item.taobao.com/item.htm?id=1", false},
		{"https://img.alicdn.com/pic.jpg", false},
	}
	for _, tt := range tests {
		if got := isSearchAPI(tt.url); got != tt.want {
			t.Errorf("isSearchAPI(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDetailURLAndPlaceholder(t *testing.T) {
	if got := detailURL("674832915027"); got != "https://item.taobao.com/item.htm?id=674832915027" {
		t.Errorf("detailURL = %q", got)
	}
	if got := placeholderName("674832915027"); got != "Taobao item 674832915027" {
		t.Errorf("placeholderName = %q", got)
	}
}
