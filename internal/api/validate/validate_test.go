package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

func TestIntParam(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        int
		expectError bool
	}{
		{name: "empty uses default", raw: "", want: 12},
		{name: "in range", raw: "7", want: 7},
		{name: "below range clamps", raw: "0", want: 1},
		{name: "negative clamps", raw: "-3", want: 1},
		{name: "above range clamps", raw: "500", want: 24},
		{name: "whitespace trimmed", raw: " 5 ", want: 5},
		{name: "not a number", raw: "ten", expectError: true},
		{name: "float", raw: "2.5", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntParam("limit", tt.raw, 12, 1, 24)
			if tt.expectError {
				if !errors.Is(err, model.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTerm(t *testing.T) {
	got, err := Term("  paz total ")
	if err != nil || got != "paz total" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := Term(strings.Repeat("á", MaxTermRunes)); err != nil {
		t.Fatalf("limit counts runes, not bytes: %v", err)
	}
	if _, err := Term(strings.Repeat("a", MaxTermRunes+1)); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	for _, ok := range []string{"https://newsapi.org", "http://localhost:9000/"} {
		if err := BaseURL(ok); err != nil {
			t.Fatalf("%s: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "newsapi.org", "ftp://x", "https://"} {
		if err := BaseURL(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestMaxResults(t *testing.T) {
	if err := MaxResults(50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := MaxResults(0); err == nil {
		t.Fatalf("expected error for 0")
	}
	if err := MaxResults(MaxWebResults + 1); err == nil {
		t.Fatalf("expected error above ceiling")
	}
	if err := MaxResults(100); err == nil {
		t.Fatalf("expected error for 100")
	}
}
