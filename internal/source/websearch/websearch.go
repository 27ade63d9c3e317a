// Package websearch adapts a paid news/web search API (NewsAPI-style
// /v2/everything) to the shared result shape.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/source"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	Name         = "websearch"
	searchPath   = "/v2/everything"
	removedTitle = "[Removed]"
)

// Config holds the upstream credential and endpoint.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Adapter queries the search API. Credential and endpoint can be swapped at
// runtime with Reconfigure.
type Adapter struct {
	mu     sync.RWMutex
	cfg    Config
	client *resty.Client
	log    zerolog.Logger
}

// New builds the adapter.
func New(cfg Config, log zerolog.Logger) *Adapter {
	a := &Adapter{log: log.With().Str("upstream", Name).Logger()}
	a.apply(cfg)
	return a
}

func (a *Adapter) apply(cfg Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	a.cfg = cfg
	a.client = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)
}

// Reconfigure swaps credential and endpoint. Nil values keep the current
// setting; an empty key switches the adapter off.
func (a *Adapter) Reconfigure(apiKey, baseURL *string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg := a.cfg
	if apiKey != nil {
		cfg.APIKey = *apiKey
	}
	if baseURL != nil && *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	a.apply(cfg)
	a.log.Info().Str("base_url", cfg.BaseURL).Bool("api_key_configured", cfg.APIKey != "").Msg("web search reconfigured")
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Configured() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.APIKey != ""
}

// BaseURL returns the current endpoint.
func (a *Adapter) BaseURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.BaseURL
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

type articlesResponse struct {
	Status       string     `json:"status"`
	Code         string     `json:"code"`
	Message      string     `json:"message"`
	TotalResults int        `json:"totalResults"`
	Articles     *[]article `json:"articles"`
}

func (a *Adapter) Fetch(ctx context.Context, q model.Query) ([]model.ResultRecord, error) {
	a.mu.RLock()
	cfg, client := a.cfg, a.client
	a.mu.RUnlock()
	if cfg.APIKey == "" {
		return nil, model.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	params := map[string]string{
		"q":        q.Term,
		"pageSize": strconv.Itoa(q.Limit),
		"sortBy":   "relevancy",
	}
	if cfg.Language != "" {
		params["language"] = cfg.Language
	}
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", cfg.APIKey).
		SetQueryParams(params).
		Get(searchPath)
	if err != nil {
		return nil, model.NewUpstreamError(Name, model.KindUnavailable, 0, fmt.Errorf("web search request: %w", err))
	}

	var body articlesResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)
	if resp.StatusCode() != http.StatusOK || body.Status == "error" {
		return nil, classify(resp.StatusCode(), body)
	}
	if decodeErr != nil {
		return nil, model.NewUpstreamError(Name, model.KindUnavailable, resp.StatusCode(), fmt.Errorf("decode response: %w", decodeErr))
	}
	if body.Articles == nil {
		return nil, model.NewUpstreamError(Name, model.KindUnavailable, resp.StatusCode(), errors.New("response missing articles"))
	}

	out := make([]model.ResultRecord, 0, len(*body.Articles))
	for _, art := range *body.Articles {
		title := source.CleanTitle(art.Title)
		if title == "" || title == removedTitle {
			continue
		}
		published, _ := time.Parse(time.RFC3339, art.PublishedAt)
		idSeed := art.URL
		if idSeed == "" {
			idSeed = title
		}
		out = append(out, model.ResultRecord{
			ID:             uuid.NewSHA1(uuid.NameSpaceURL, []byte(idSeed)).String(),
			Title:          title,
			Description:    source.TruncateDescription(art.Description),
			Source:         art.Source.Name,
			PublishedAt:    published,
			Link:           art.URL,
			Thumbnail:      art.URLToImage,
			RelevanceScore: source.UpstreamOrderScore(len(out)),
			Origin:         model.OriginUpstream,
		})
	}
	return out, nil
}

func classify(status int, body articlesResponse) error {
	err := errors.New(strings.TrimSpace(body.Code + " " + body.Message))
	switch {
	case status == http.StatusUnauthorized, strings.HasPrefix(body.Code, "apiKey"):
		return model.NewUpstreamError(Name, model.KindUnauthorized, status, err)
	case status == http.StatusTooManyRequests, body.Code == "rateLimited":
		return model.NewUpstreamError(Name, model.KindRateLimited, status, err)
	case status == http.StatusBadRequest:
		return model.NewUpstreamError(Name, model.KindBadRequest, status, err)
	default:
		return model.NewUpstreamError(Name, model.KindUnavailable, status, err)
	}
}
