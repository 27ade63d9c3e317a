// Package universal is the web/news search surface: one cached result set per
// term, paginated per request, with a bundled corpus merged into every answer.
package universal

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/aggregate"
	"github.com/nuestro-pulso/pulso-search/internal/cache"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/paginate"
)

// Namespace prefixes every universal cache key.
const Namespace = "search"

// Reconfigurer is the part of the web search adapter that can change at runtime.
type Reconfigurer interface {
	Reconfigure(apiKey, baseURL *string)
	Configured() bool
	BaseURL() string
}

// SearchPage is one page of a universal search.
type SearchPage struct {
	Results      []model.ResultRecord `json:"results"`
	TotalResults int                  `json:"totalResults"`
	HasMorePages bool                 `json:"hasMorePages"`
	CurrentPage  int                  `json:"currentPage"`
	TotalPages   int                  `json:"totalPages"`
	Origin       model.SetOrigin      `json:"origin,omitempty"`
	Query        string               `json:"query"`
}

// Settings is the runtime-adjustable part of the service.
type Settings struct {
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
	BaseURL          string `json:"baseUrl"`
	MaxResults       int    `json:"maxResults"`
	EnableFallback   bool   `json:"enableFallback"`
}

// ConfigUpdate carries optional replacements; nil fields are left alone.
type ConfigUpdate struct {
	APIKey         *string `json:"apiKey,omitempty"`
	BaseURL        *string `json:"baseUrl,omitempty"`
	MaxResults     *int    `json:"maxResults,omitempty"`
	EnableFallback *bool   `json:"enableFallback,omitempty"`
}

type Service struct {
	agg             *aggregate.Aggregator
	web             Reconfigurer
	maxResults      atomic.Int64
	defaultPageSize int
	log             zerolog.Logger
}

// NewService wires the aggregator and the reconfigurable web adapter. The
// aggregator should be built with AlwaysIncludeFallback so the corpus is
// merged into every set.
func NewService(agg *aggregate.Aggregator, web Reconfigurer, maxResults, defaultPageSize int, log zerolog.Logger) *Service {
	s := &Service{agg: agg, web: web, defaultPageSize: defaultPageSize, log: log}
	s.maxResults.Store(int64(maxResults))
	return s
}

// Search returns page of the results for term. An empty term short-circuits
// without touching any upstream.
func (s *Service) Search(ctx context.Context, term string, page, pageSize int) (SearchPage, error) {
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	q := model.NewQuery(Namespace, term, model.ModeSearch, int(s.maxResults.Load()))
	if q.Term == "" {
		return SearchPage{Results: []model.ResultRecord{}, CurrentPage: page}, nil
	}

	rs, err := s.agg.Get(ctx, q)
	if err != nil {
		return SearchPage{}, err
	}
	p := paginate.Paginate(rs, page, pageSize)
	return SearchPage{
		Results:      p.Items,
		TotalResults: p.TotalResults,
		HasMorePages: p.HasMorePages,
		CurrentPage:  p.CurrentPage,
		TotalPages:   p.TotalPages,
		Origin:       rs.Origin,
		Query:        q.Term,
	}, nil
}

func (s *Service) Settings() Settings {
	return Settings{
		APIKeyConfigured: s.web.Configured(),
		BaseURL:          s.web.BaseURL(),
		MaxResults:       int(s.maxResults.Load()),
		EnableFallback:   s.agg.FallbackEnabled(),
	}
}

// UpdateConfig applies u and invalidates the cache so no set built under the
// old settings is served, including sets whose build was already running.
func (s *Service) UpdateConfig(ctx context.Context, u ConfigUpdate) Settings {
	if u.APIKey != nil || u.BaseURL != nil {
		s.web.Reconfigure(u.APIKey, u.BaseURL)
	}
	if u.MaxResults != nil {
		s.maxResults.Store(int64(*u.MaxResults))
	}
	if u.EnableFallback != nil {
		s.agg.SetFallbackEnabled(*u.EnableFallback)
	}
	s.agg.Invalidate(ctx)

	cur := s.Settings()
	s.log.Info().Bool("api_key_configured", cur.APIKeyConfigured).Str("base_url", cur.BaseURL).
		Int("max_results", cur.MaxResults).Bool("fallback", cur.EnableFallback).Msg("search settings updated")
	return cur
}

func (s *Service) Cache() cache.Cache { return s.agg.Cache() }

func (s *Service) Clear(ctx context.Context) { s.agg.Invalidate(ctx) }

func (s *Service) Stats(ctx context.Context) cache.Stats { return s.agg.Cache().Stats(ctx) }
