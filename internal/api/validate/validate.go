package validate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// MaxTermRunes bounds the search term a client may send.
const MaxTermRunes = 200

// MaxWebResults is the largest result set fetched from the web search API per term.
const MaxWebResults = 50

// IntParam parses a query parameter. Empty means def; values outside
// [lo, hi] are clamped; anything that is not an integer is rejected.
func IntParam(field, raw string, def, lo, hi int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", model.ErrValidation, field)
	}
	return Clamp(n, lo, hi), nil
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Term trims v and rejects overly long terms. An empty term is valid.
func Term(v string) (string, error) {
	v = strings.TrimSpace(v)
	if len([]rune(v)) > MaxTermRunes {
		return "", fmt.Errorf("%w: q exceeds %d characters", model.ErrValidation, MaxTermRunes)
	}
	return v, nil
}

// BaseURL accepts absolute http(s) URLs only.
func BaseURL(v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: baseUrl must be an absolute http(s) URL", model.ErrValidation)
	}
	return nil
}

// MaxResults checks a runtime override of the per-call result ceiling.
func MaxResults(n int) error {
	if n < 1 || n > MaxWebResults {
		return fmt.Errorf("%w: maxResults must be between 1 and %d", model.ErrValidation, MaxWebResults)
	}
	return nil
}
