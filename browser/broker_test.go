package browser

import (
	"net/http"
	"strings"
	"testing"
)

func TestIsQuotaResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"429 always counts", http.StatusTooManyRequests, "", true},
		{"session limit body", http.StatusForbidden, `{"error":"session limit reached"}`, true},
		{"quota body", http.StatusPaymentRequired, `{"error":"monthly quota exhausted"}`, true},
		{"too many sessions", http.StatusConflict, "too many sessions for plan", true},
		{"rate limit body", http.StatusServiceUnavailable, "rate limit, retry later", true},
		{"case insensitive", http.StatusForbidden, "QUOTA EXCEEDED", true},
		{"plain auth error", http.StatusUnauthorized, `{"error":"invalid api key"}`, false},
		{"server error", http.StatusInternalServerError, "internal error", false},
		{"success with quota word", http.StatusOK, "quota remaining: 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isQuotaResponse(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("isQuotaResponse(%d, %q) = %v, want %v", tt.status, tt.body, got, tt.want)
			}
		})
	}
}

func TestQuotaError_Message(t *testing.T) {
	err := &QuotaError{Status: 429, Body: "session limit reached"}
	got := err.Error()
	for _, want := range []string{"429", "session limit reached"} {
		if !strings.Contains(got, want) {
			t.Errorf("error message %q missing %q", got, want)
		}
	}
}
