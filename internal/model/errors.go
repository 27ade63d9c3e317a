package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	// ErrNotConfigured is returned by adapters that have no credential.
	ErrNotConfigured = errors.New("upstream not configured")
)

// Kind classifies upstream failures. "No results" is deliberately not a kind.
type Kind int

const (
	KindUnavailable Kind = iota
	KindUnauthorized
	KindRateLimited
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unavailable"
	}
}

// UpstreamError is the only error type a source adapter returns.
type UpstreamError struct {
	Source string
	Kind   Kind
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError builds an UpstreamError.
func NewUpstreamError(source string, kind Kind, status int, err error) *UpstreamError {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &UpstreamError{Source: source, Kind: kind, Status: status, Err: err}
}

// KindOf extracts the Kind carried by err. ok is false for non-upstream errors.
func KindOf(err error) (Kind, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	return KindUnavailable, false
}

// Degradable reports whether fallback may absorb err.
func Degradable(err error) bool {
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == KindUnavailable || k == KindRateLimited || k == KindUnauthorized
}
