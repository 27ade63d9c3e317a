// Package source defines the upstream adapter contract and the normalization
// rules shared by every adapter.
package source

import (
	"context"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// Adapter fetches one logical query from one upstream. Implementations return
// *model.UpstreamError on failure and model.ErrNotConfigured when no credential
// is set; they never return partial data.
type Adapter interface {
	Name() string
	Configured() bool
	Fetch(ctx context.Context, q model.Query) ([]model.ResultRecord, error)
}
