package models

import (
	"errors"
	"testing"
)

func TestScrapeError_WrapsCause(t *testing.T) {
	cause := errors.New("tcp reset")
	err := NewScrapeError(ErrCodeNavigation, "navigation failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}

	var scrapeErr *ScrapeError
	if !errors.As(error(err), &scrapeErr) {
		t.Fatal("errors.As failed")
	}
	if scrapeErr.Code != ErrCodeNavigation {
		t.Errorf("code = %q", scrapeErr.Code)
	}
}

func TestScrapeError_ToDetail(t *testing.T) {
	err := NewScrapeError(ErrCodeTimeout, "scrape timed out", errors.New("raw internal detail"))
	d := err.ToDetail()

	if d.Code != ErrCodeTimeout || d.Message != "scrape timed out" {
		t.Errorf("detail = %+v", d)
	}
}

func TestScrapeURLRequest_Defaults(t *testing.T) {
	req := &ScrapeURLRequest{URL: "https://example.com"}
	req.Defaults()
	if req.Timeout != 60 {
		t.Errorf("default timeout = %d, want 60", req.Timeout)
	}

	req = &ScrapeURLRequest{URL: "https://example.com", Timeout: 120}
	req.Defaults()
	if req.Timeout != 120 {
		t.Errorf("explicit timeout overwritten: %d", req.Timeout)
	}
}
