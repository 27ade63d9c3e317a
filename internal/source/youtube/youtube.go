// Package youtube adapts the YouTube Data API v3 to the shared result shape.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/source"
)

const (
	Name = "youtube"

	// chartFetchSize is the page requested from the trending chart before
	// the topical filter narrows it down.
	chartFetchSize = 50
	defaultTerm    = "noticias Colombia"
	watchURL       = "https://www.youtube.com/watch?v="
	embedURL       = "https://www.youtube.com/embed/"
)

var (
	searchParts = []string{"id", "snippet"}
	videoParts  = []string{"snippet", "statistics", "contentDetails"}
)

// Config holds upstream-specific parameters.
type Config struct {
	APIKey     string
	BaseURL    string
	RegionCode string
	Language   string
	CategoryID string
	WindowDays int
	Timeout    time.Duration
}

// Adapter issues search.list + videos.list (search mode) or a single
// chart videos.list (trending mode).
type Adapter struct {
	cfg   Config
	svc   *yt.Service
	clock clock.Clock
	log   zerolog.Logger
}

// New builds the adapter. The API key is sent per call, so the service is
// created without ambient Google credentials.
func New(ctx context.Context, cfg Config, clk clock.Clock, log zerolog.Logger) (*Adapter, error) {
	if clk == nil {
		clk = clock.System()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := []option.ClientOption{option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithEndpoint(base))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return &Adapter{cfg: cfg, svc: svc, clock: clk, log: log.With().Str("upstream", Name).Logger()}, nil
}

func (a *Adapter) Name() string     { return Name }
func (a *Adapter) Configured() bool { return a.cfg.APIKey != "" }

func (a *Adapter) Fetch(ctx context.Context, q model.Query) ([]model.ResultRecord, error) {
	if !a.Configured() {
		return nil, model.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if q.Mode == model.ModeTrending {
		return a.trending(ctx, q)
	}
	return a.search(ctx, q)
}

func (a *Adapter) key() googleapi.CallOption { return googleapi.QueryParameter("key", a.cfg.APIKey) }

func (a *Adapter) search(ctx context.Context, q model.Query) ([]model.ResultRecord, error) {
	term := q.Term
	if term == "" {
		term = defaultTerm
	}
	after := a.clock.Now().AddDate(0, 0, -a.cfg.WindowDays).UTC().Format(time.RFC3339)

	call := a.svc.Search.List(searchParts).
		Q(term).
		Type("video").
		Order("relevance").
		MaxResults(int64(q.Limit)).
		PublishedAfter(after).
		Context(ctx)
	if a.cfg.RegionCode != "" {
		call = call.RegionCode(a.cfg.RegionCode)
	}
	if a.cfg.Language != "" {
		call = call.RelevanceLanguage(a.cfg.Language)
	}
	resp, err := call.Do(a.key())
	if err != nil {
		return nil, classify(err)
	}
	if resp.Items == nil {
		return nil, malformed("search response missing items")
	}

	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it == nil || it.Id == nil || it.Id.VideoId == "" || it.Snippet == nil {
			continue
		}
		ids = append(ids, it.Id.VideoId)
	}
	if len(ids) == 0 {
		return []model.ResultRecord{}, nil
	}

	details, err := a.videoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	out := make([]model.ResultRecord, 0, len(ids))
	for _, it := range resp.Items {
		if it == nil || it.Id == nil || it.Id.VideoId == "" || it.Snippet == nil {
			continue
		}
		sn := it.Snippet
		rec := newRecord(it.Id.VideoId, sn.Title, sn.Description, sn.ChannelTitle, sn.PublishedAt, sn.LiveBroadcastContent, sn.Thumbnails)
		if v, ok := details[it.Id.VideoId]; ok {
			applyDetails(&rec, v)
		}
		if rec.Title == "" {
			continue
		}
		rec.RelevanceScore = source.Score(rec.ViewCount, rec.LikeCount, rec.PublishedAt, now)
		out = append(out, rec)
	}
	return out, nil
}

// videoDetails is the second round trip that enriches search hits with
// statistics and durations.
func (a *Adapter) videoDetails(ctx context.Context, ids []string) (map[string]*yt.Video, error) {
	resp, err := a.svc.Videos.List(videoParts).
		Id(ids...).
		MaxResults(int64(len(ids))).
		Context(ctx).
		Do(a.key())
	if err != nil {
		return nil, classify(err)
	}
	if resp.Items == nil {
		return nil, malformed("videos response missing items")
	}
	out := make(map[string]*yt.Video, len(resp.Items))
	for _, v := range resp.Items {
		if v != nil && v.Id != "" {
			out[v.Id] = v
		}
	}
	return out, nil
}

func (a *Adapter) trending(ctx context.Context, q model.Query) ([]model.ResultRecord, error) {
	call := a.svc.Videos.List(videoParts).
		Chart("mostPopular").
		MaxResults(chartFetchSize).
		Context(ctx)
	if a.cfg.RegionCode != "" {
		call = call.RegionCode(a.cfg.RegionCode)
	}
	if a.cfg.CategoryID != "" {
		call = call.VideoCategoryId(a.cfg.CategoryID)
	}
	resp, err := call.Do(a.key())
	if err != nil {
		return nil, classify(err)
	}
	if resp.Items == nil {
		return nil, malformed("chart response missing items")
	}

	now := a.clock.Now()
	out := make([]model.ResultRecord, 0, q.Limit)
	for _, v := range resp.Items {
		if v == nil || v.Id == "" || v.Snippet == nil {
			continue
		}
		sn := v.Snippet
		if !source.IsTopical(sn.Title, sn.Description, sn.ChannelTitle) {
			continue
		}
		rec := newRecord(v.Id, sn.Title, sn.Description, sn.ChannelTitle, sn.PublishedAt, sn.LiveBroadcastContent, sn.Thumbnails)
		if rec.Title == "" {
			continue
		}
		applyDetails(&rec, v)
		rec.Trending = true
		rec.RelevanceScore = source.Score(rec.ViewCount, rec.LikeCount, rec.PublishedAt, now)
		out = append(out, rec)
		if len(out) == q.Limit {
			break
		}
	}
	a.log.Debug().Int("chart", len(resp.Items)).Int("topical", len(out)).Msg("trending chart filtered")
	return out, nil
}

func newRecord(id, title, description, channel, publishedAt, live string, th *yt.ThumbnailDetails) model.ResultRecord {
	published, _ := time.Parse(time.RFC3339, publishedAt)
	return model.ResultRecord{
		ID:          id,
		Title:       source.CleanTitle(title),
		Description: source.TruncateDescription(description),
		Source:      channel,
		PublishedAt: published,
		Link:        watchURL + id,
		PlayURL:     embedURL + id,
		Thumbnail:   thumbnails(th).Best(),
		Duration:    source.ParseDuration(""),
		IsLive:      live == "live",
		Origin:      model.OriginUpstream,
	}
}

func applyDetails(rec *model.ResultRecord, v *yt.Video) {
	if v.Statistics != nil {
		rec.ViewCount = int64(v.Statistics.ViewCount)
		rec.LikeCount = int64(v.Statistics.LikeCount)
	}
	if v.ContentDetails != nil {
		rec.Duration = source.ParseDuration(v.ContentDetails.Duration)
	}
	if v.Snippet != nil && v.Snippet.LiveBroadcastContent == "live" {
		rec.IsLive = true
	}
}

func thumbnails(th *yt.ThumbnailDetails) source.Thumbnails {
	if th == nil {
		return source.Thumbnails{}
	}
	url := func(t *yt.Thumbnail) string {
		if t == nil {
			return ""
		}
		return t.Url
	}
	return source.Thumbnails{
		MaxRes:  url(th.Maxres),
		High:    url(th.High),
		Medium:  url(th.Medium),
		Default: url(th.Default),
	}
}

func malformed(msg string) error {
	return model.NewUpstreamError(Name, model.KindUnavailable, 0, errors.New(msg))
}

// classify maps client errors onto the shared taxonomy. YouTube reports quota
// exhaustion as 403 with a quota reason and bad keys as 400 keyInvalid.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return model.NewUpstreamError(Name, model.KindUnavailable, 0, err)
	}
	reasons := make(map[string]bool, len(gerr.Errors))
	for _, e := range gerr.Errors {
		reasons[e.Reason] = true
	}
	switch {
	case gerr.Code == http.StatusTooManyRequests,
		reasons["quotaExceeded"], reasons["rateLimitExceeded"], reasons["dailyLimitExceeded"],
		reasons["userRateLimitExceeded"]:
		return model.NewUpstreamError(Name, model.KindRateLimited, gerr.Code, err)
	case gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden,
		reasons["keyInvalid"], reasons["keyExpired"]:
		return model.NewUpstreamError(Name, model.KindUnauthorized, gerr.Code, err)
	case gerr.Code == http.StatusBadRequest:
		return model.NewUpstreamError(Name, model.KindBadRequest, gerr.Code, err)
	default:
		return model.NewUpstreamError(Name, model.KindUnavailable, gerr.Code, err)
	}
}
