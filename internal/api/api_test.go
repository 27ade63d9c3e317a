package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuestro-pulso/pulso-search/internal/aggregate"
	"github.com/nuestro-pulso/pulso-search/internal/cache"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/fallback"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/source"
	"github.com/nuestro-pulso/pulso-search/internal/universal"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeUpstream struct {
	name      string
	key, base string
	err       error
	records   []model.ResultRecord
	calls     atomic.Int32
	lastQuery atomic.Value
}

func (f *fakeUpstream) Name() string     { return f.name }
func (f *fakeUpstream) Configured() bool { return f.key != "" }
func (f *fakeUpstream) BaseURL() string  { return f.base }
func (f *fakeUpstream) Reconfigure(key, base *string) {
	if key != nil {
		f.key = *key
	}
	if base != nil && *base != "" {
		f.base = *base
	}
}
func (f *fakeUpstream) Fetch(_ context.Context, q model.Query) ([]model.ResultRecord, error) {
	f.calls.Add(1)
	f.lastQuery.Store(q)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func videoRecords() []model.ResultRecord {
	return []model.ResultRecord{
		{ID: "v1", Title: "Debate presidencial", RelevanceScore: 40, Origin: model.OriginUpstream},
		{ID: "v2", Title: "Marcha en Bogotá", RelevanceScore: 80, Origin: model.OriginUpstream},
	}
}

type fixture struct {
	router  http.Handler
	youtube *fakeUpstream
	web     *fakeUpstream
	clk     *clock.Fake
}

func newFixture(t *testing.T, enableFallback, production bool) *fixture {
	t.Helper()
	clk := clock.NewFake(epoch)
	yt := &fakeUpstream{name: "youtube", key: "yt-key", records: videoRecords()}
	web := &fakeUpstream{name: "websearch", key: "web-key", base: "https://newsapi.org", records: []model.ResultRecord{
		{ID: "w1", Title: "Reforma pensional aprobada", RelevanceScore: 100, Origin: model.OriginUpstream},
	}}

	videoAgg := aggregate.New(cache.NewMemory(5*time.Minute, clk), []source.Adapter{yt}, fallback.NewGenerator(clk, 1),
		clk, nil, zerolog.Nop(), aggregate.Options{Surface: VideoNamespace, EnableFallback: enableFallback})
	searchAgg := aggregate.New(cache.NewMemory(5*time.Minute, clk), []source.Adapter{web}, fallback.NewCorpus(clk, fallback.DefaultArticles),
		clk, nil, zerolog.Nop(), aggregate.Options{Surface: universal.Namespace, EnableFallback: enableFallback, AlwaysIncludeFallback: true})

	h := Handlers{
		Videos: NewVideoHandler(videoAgg, yt, VideoOptions{MaxLimit: 24, DefaultLimit: 12, Version: "test", Production: production}, clk),
		Search: NewSearchHandler(universal.NewService(searchAgg, web, 50, 10, zerolog.Nop()),
			SearchOptions{DefaultPageSize: 10, Version: "test", Production: production}, clk),
		Health: NewHealthHandler(staticHealth{healthy: true}, "test", clk),
	}
	return &fixture{router: NewRouter(h, zerolog.Nop()), youtube: yt, web: web, clk: clk}
}

type staticHealth struct{ healthy bool }

func (s staticHealth) IsHealthy() bool { return s.healthy }
func (s staticHealth) Components() map[string]string {
	return map[string]string{"cache": "UP"}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	var payload map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	}
	return rr, payload
}

func TestVideos_SearchEnvelope(t *testing.T) {
	f := newFixture(t, true, false)
	rr, body := f.do(t, http.MethodGet, "/videos?q=marcha&limit=5", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "marcha", body["query"])
	assert.Equal(t, "search", body["requestType"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, "live", body["origin"])
	assert.Equal(t, float64(2), body["totalResults"])
	assert.Equal(t, "2025-06-01T12:00:00Z", body["timestamp"])
	videos := body["videos"].([]any)
	require.Len(t, videos, 2)
	assert.Equal(t, "v2", videos[0].(map[string]any)["id"])

	_, again := f.do(t, http.MethodGet, "/videos?q=MARCHA&limit=5", nil)
	assert.Equal(t, "cache", again["origin"])
	assert.Equal(t, int32(1), f.youtube.calls.Load())
}

func TestVideos_DefaultsAndClamping(t *testing.T) {
	f := newFixture(t, true, false)
	_, body := f.do(t, http.MethodGet, "/videos?limit=999", nil)
	assert.Equal(t, float64(24), body["limit"])
	assert.Equal(t, DefaultVideoTerm, body["query"])

	rr, _ := f.do(t, http.MethodGet, "/videos?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = f.do(t, http.MethodGet, "/videos?mode=popular", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVideos_TrendingForcesMode(t *testing.T) {
	f := newFixture(t, true, false)
	_, body := f.do(t, http.MethodGet, "/videos/trending?q=ignored", nil)
	assert.Equal(t, "trending", body["requestType"])
	assert.Equal(t, "", body["query"])
	assert.Equal(t, float64(12), body["limit"])
	q := f.youtube.lastQuery.Load().(model.Query)
	assert.Equal(t, model.ModeTrending, q.Mode)
}

func TestVideos_QuotaWithFallbackServesDemoData(t *testing.T) {
	f := newFixture(t, true, false)
	f.youtube.err = model.NewUpstreamError("youtube", model.KindRateLimited, 403, nil)

	rr, body := f.do(t, http.MethodGet, "/videos?q=paro&limit=6", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fallback", body["origin"])
	videos := body["videos"].([]any)
	require.Len(t, videos, 6)
	assert.Equal(t, "fallback", videos[0].(map[string]any)["origin"])
}

func TestVideos_QuotaWithoutFallbackIs429(t *testing.T) {
	f := newFixture(t, false, false)
	f.youtube.err = model.NewUpstreamError("youtube", model.KindRateLimited, 403, nil)

	rr, body := f.do(t, http.MethodGet, "/videos?q=paro", nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, float64(RetryAfterSeconds), body["retryAfter"])
	assert.Equal(t, "3600", rr.Header().Get("Retry-After"))
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, body["detail"])
}

func TestVideos_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		fallback   bool
		kind       model.Kind
		wantStatus int
	}{
		{"unauthorized without fallback", false, model.KindUnauthorized, http.StatusUnauthorized},
		{"unavailable without fallback", false, model.KindUnavailable, http.StatusInternalServerError},
		{"bad request with fallback", true, model.KindBadRequest, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.fallback, true)
			f.youtube.err = model.NewUpstreamError("youtube", tc.kind, 0, nil)
			rr, body := f.do(t, http.MethodGet, "/videos?q=x", nil)
			assert.Equal(t, tc.wantStatus, rr.Code)
			_, hasDetail := body["detail"]
			assert.False(t, hasDetail, "production hides detail")
		})
	}
}

func TestVideos_CacheStatsAndClear(t *testing.T) {
	f := newFixture(t, true, false)
	f.do(t, http.MethodGet, "/videos?q=a", nil)
	f.do(t, http.MethodGet, "/videos?q=b", nil)

	_, stats := f.do(t, http.MethodGet, "/videos/cache/stats", nil)
	assert.Equal(t, float64(2), stats["size"])
	assert.Equal(t, float64(300000), stats["timeout"])

	rr, cleared := f.do(t, http.MethodPost, "/videos/cache/clear", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, cleared["message"])

	_, stats = f.do(t, http.MethodGet, "/videos/cache/stats", nil)
	assert.Equal(t, float64(0), stats["size"])
}

func TestVideos_HealthIsNetworkFree(t *testing.T) {
	f := newFixture(t, true, false)
	_, body := f.do(t, http.MethodGet, "/videos/health", nil)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, true, body["apiKeyConfigured"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, int32(0), f.youtube.calls.Load())

	f.youtube.key = ""
	_, body = f.do(t, http.MethodGet, "/videos/health", nil)
	assert.Equal(t, "configuration_required", body["status"])
}

func TestSearch_EmptyTerm(t *testing.T) {
	f := newFixture(t, true, false)
	rr, body := f.do(t, http.MethodGet, "/search?q=", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{}, body["results"])
	assert.Equal(t, float64(0), body["totalResults"])
	assert.Equal(t, false, body["hasMorePages"])
	assert.Equal(t, int32(0), f.web.calls.Load())
}

func TestSearch_Paginates(t *testing.T) {
	f := newFixture(t, true, false)
	rr, body := f.do(t, http.MethodGet, "/search?q=reforma&page=1&pageSize=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "w1", results[0].(map[string]any)["id"])
	assert.Equal(t, true, body["hasMorePages"])
	assert.Equal(t, float64(1), body["currentPage"])

	_, page2 := f.do(t, http.MethodGet, "/search?q=reforma&page=2&pageSize=1", nil)
	assert.Equal(t, "cache", page2["origin"])
	assert.Equal(t, int32(1), f.web.calls.Load())
}

func TestSearch_QuotaBothConfigurations(t *testing.T) {
	quota := model.NewUpstreamError("websearch", model.KindRateLimited, 429, nil)

	on := newFixture(t, true, false)
	on.web.err = quota
	rr, body := on.do(t, http.MethodGet, "/search?q=elecciones", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fallback", body["origin"])
	assert.NotEmpty(t, body["results"])

	off := newFixture(t, false, false)
	off.web.err = quota
	rr, body = off.do(t, http.MethodGet, "/search?q=elecciones", nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, float64(RetryAfterSeconds), body["retryAfter"])
}

func TestSearch_UpdateConfig(t *testing.T) {
	f := newFixture(t, true, false)
	f.do(t, http.MethodGet, "/search?q=reforma", nil)

	rr, body := f.do(t, http.MethodPut, "/search/config", []byte(`{"apiKey":"rotated","baseUrl":"https://search.example","maxResults":20}`))
	require.Equal(t, http.StatusOK, rr.Code, body)
	settings := body["settings"].(map[string]any)
	assert.Equal(t, "https://search.example", settings["baseUrl"])
	assert.Equal(t, float64(20), settings["maxResults"])
	assert.Equal(t, "rotated", f.web.key)

	_, stats := f.do(t, http.MethodGet, "/search/cache/stats", nil)
	assert.Equal(t, float64(0), stats["size"])

	rr, _ = f.do(t, http.MethodPut, "/search/config", []byte(`{"baseUrl":"not a url"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = f.do(t, http.MethodPut, "/search/config", []byte(`{"maxResults":0}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = f.do(t, http.MethodPut, "/search/config", []byte(`{"maxResults":100}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	f.do(t, http.MethodGet, "/search?q=elecciones", nil)
	q, _ := f.web.lastQuery.Load().(model.Query)
	assert.Equal(t, 20, q.Limit)

	rr, body = f.do(t, http.MethodPut, "/search/config", []byte(`{"apiKey":""}`))
	require.Equal(t, http.StatusOK, rr.Code, body)
	assert.Equal(t, false, body["settings"].(map[string]any)["apiKeyConfigured"])
	assert.Equal(t, "", f.web.key)
	rr, _ = f.do(t, http.MethodPut, "/search/config", []byte(`{"unknown":true}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearch_Health(t *testing.T) {
	f := newFixture(t, true, false)
	_, body := f.do(t, http.MethodGet, "/search/health", nil)
	assert.Equal(t, "ready", body["status"])
	assert.Contains(t, body, "cache")
	assert.Equal(t, int32(0), f.web.calls.Load())
}

func TestServiceHealth(t *testing.T) {
	f := newFixture(t, true, false)
	rr, body := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"cache": "UP"}, body["components"])
}

func TestRouter_MethodMismatch(t *testing.T) {
	f := newFixture(t, true, false)
	req := httptest.NewRequest(http.MethodGet, "/videos/cache/clear", nil)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
