package cache

import (
	"testing"

	"github.com/use-agent/harvest/models"
)

func TestKey_DistinguishesKindAndURL(t *testing.T) {
	url := "https://www.example.com/dp/X1"

	if Key(KindProduct, url) == Key(KindSearch, url) {
		t.Error("product and search keys for the same URL must differ")
	}
	if Key(KindProduct, url) != Key(KindProduct, url) {
		t.Error("key must be deterministic")
	}
	if Key(KindProduct, url) == Key(KindProduct, url+"?page=2") {
		t.Error("different URLs must produce different keys")
	}
}

func TestCache_ProductRoundTrip(t *testing.T) {
	c := New(10)
	key := Key(KindProduct, "https://www.example.com/dp/X1")

	if _, _, hit := c.GetProduct(key, 60000); hit {
		t.Fatal("unexpected hit on empty cache")
	}

	product := &models.ScrapedProduct{Name: "Cached Item"}
	c.SetProduct(key, product, "amazon")

	got, providerName, hit := c.GetProduct(key, 60000)
	if !hit {
		t.Fatal("expected a hit")
	}
	if got.Name != "Cached Item" || providerName != "amazon" {
		t.Errorf("got %q from %q", got.Name, providerName)
	}

	// A search lookup with the product's key must miss: the entry
	// holds no search result.
	if _, _, hit := c.GetSearch(key, 60000); hit {
		t.Error("search lookup hit a product entry")
	}
}

func TestCache_MaxAgeZeroDisablesLookup(t *testing.T) {
	c := New(10)
	key := Key(KindSearch, "https://www.example.com/s?k=x")
	c.SetSearch(key, &models.ScrapedSearchResult{}, "amazon")

	if _, _, hit := c.GetSearch(key, 0); hit {
		t.Error("maxAge 0 must disable the cache")
	}
	if _, _, hit := c.GetSearch(key, -1); hit {
		t.Error("negative maxAge must disable the cache")
	}
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New(2)

	c.SetProduct(Key(KindProduct, "u1"), &models.ScrapedProduct{}, "a")
	c.SetProduct(Key(KindProduct, "u2"), &models.ScrapedProduct{}, "a")
	c.SetProduct(Key(KindProduct, "u3"), &models.ScrapedProduct{}, "a")

	hits := 0
	for _, u := range []string{"u1", "u2", "u3"} {
		if _, _, hit := c.GetProduct(Key(KindProduct, u), 60000); hit {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("expected capacity to hold, got %d live entries", hits)
	}
}
