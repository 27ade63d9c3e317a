package universal

import (
	"context"
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
)

type fakeWeb struct {
	key, base string
	calls     atomic.Int32
	err       error
	records   []model.ResultRecord
	lastLimit atomic.Int32
	gate      chan struct{}
}

func (f *fakeWeb) Name() string     { return "web" }
func (f *fakeWeb) Configured() bool { return f.key != "" }
func (f *fakeWeb) BaseURL() string  { return f.base }
func (f *fakeWeb) Reconfigure(key, base *string) {
	if key != nil {
		f.key = *key
	}
	if base != nil && *base != "" {
		f.base = *base
	}
}
func (f *fakeWeb) Fetch(_ context.Context, q model.Query) ([]model.ResultRecord, error) {
	f.calls.Add(1)
	f.lastLimit.Store(int32(q.Limit))
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func liveRecords(n int) []model.ResultRecord {
	out := make([]model.ResultRecord, n)
	for i := range out {
		out[i] = model.ResultRecord{
			ID:             string(rune('a' + i)),
			Title:          "Noticia en vivo " + string(rune('a'+i)),
			RelevanceScore: 100 - 5*float64(i),
			Origin:         model.OriginUpstream,
		}
	}
	return out
}

func newService(web *fakeWeb, enableFallback bool) *Service {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	agg := aggregate.New(cache.NewMemory(5*time.Minute, clk), []source.Adapter{web},
		fallback.NewCorpus(clk, fallback.DefaultArticles), clk, nil, zerolog.Nop(),
		aggregate.Options{Surface: Namespace, EnableFallback: enableFallback, AlwaysIncludeFallback: true})
	return NewService(agg, web, 50, 10, zerolog.Nop())
}

func TestSearch_EmptyTermCallsNothing(t *testing.T) {
	web := &fakeWeb{key: "k", records: liveRecords(3)}
	svc := newService(web, true)

	for _, term := range []string{"", "   "} {
		p, err := svc.Search(context.Background(), term, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, p.Results)
		assert.NotNil(t, p.Results)
		assert.Equal(t, 0, p.TotalResults)
		assert.False(t, p.HasMorePages)
	}
	assert.Equal(t, int32(0), web.calls.Load())
	assert.Equal(t, 0, svc.Stats(context.Background()).Size)
}

func TestSearch_LiveResultsLeadCorpusFollows(t *testing.T) {
	web := &fakeWeb{key: "k", records: liveRecords(3)}
	svc := newService(web, true)

	p, err := svc.Search(context.Background(), "reforma", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.SetOriginLive, p.Origin)
	require.GreaterOrEqual(t, len(p.Results), 4)
	assert.Equal(t, "a", p.Results[0].ID)
	assert.Equal(t, model.OriginFallback, p.Results[len(p.Results)-1].Origin)
	assert.Equal(t, int32(50), web.lastLimit.Load())
}

func TestSearch_PagesShareOneCachedSet(t *testing.T) {
	web := &fakeWeb{key: "k", records: liveRecords(12)}
	svc := newService(web, true)
	ctx := context.Background()

	first, err := svc.Search(ctx, "reforma", 1, 5)
	require.NoError(t, err)
	second, err := svc.Search(ctx, "reforma", 2, 5)
	require.NoError(t, err)

	assert.Equal(t, int32(1), web.calls.Load())
	assert.True(t, first.HasMorePages)
	assert.Equal(t, first.TotalResults, second.TotalResults)
	assert.Equal(t, model.SetOriginCache, second.Origin)
	assert.NotEqual(t, first.Results[0].ID, second.Results[0].ID)
}

func TestSearch_QuotaDegradation(t *testing.T) {
	quota := model.NewUpstreamError("web", model.KindRateLimited, 429, nil)

	on := newService(&fakeWeb{key: "k", err: quota}, true)
	p, err := on.Search(context.Background(), "elecciones", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.SetOriginFallback, p.Origin)
	assert.NotEmpty(t, p.Results)

	off := newService(&fakeWeb{key: "k", err: quota}, false)
	_, err = off.Search(context.Background(), "elecciones", 1, 10)
	k, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.KindRateLimited, k)
}

func TestSearch_UnconfiguredServesCorpus(t *testing.T) {
	web := &fakeWeb{}
	svc := newService(web, true)
	p, err := svc.Search(context.Background(), "registraduría", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.SetOriginFallback, p.Origin)
	require.NotEmpty(t, p.Results)
	assert.Contains(t, p.Results[0].Title, "Registraduría")
	assert.Equal(t, int32(0), web.calls.Load())
}

func TestUpdateConfig_SwapsAndClears(t *testing.T) {
	web := &fakeWeb{records: liveRecords(2)}
	svc := newService(web, true)
	ctx := context.Background()

	_, err := svc.Search(ctx, "reforma", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, svc.Stats(ctx).Size)

	key, base, maxResults, fb := "new-key", "https://search.example", 20, false
	got := svc.UpdateConfig(ctx, ConfigUpdate{APIKey: &key, BaseURL: &base, MaxResults: &maxResults, EnableFallback: &fb})
	assert.Equal(t, Settings{APIKeyConfigured: true, BaseURL: base, MaxResults: 20, EnableFallback: false}, got)
	assert.Equal(t, 0, svc.Stats(ctx).Size)

	p, err := svc.Search(ctx, "reforma", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.SetOriginLive, p.Origin)
	assert.Equal(t, int32(20), web.lastLimit.Load())
}

func TestUpdateConfig_BuildInFlightIsNotServedAfterSwap(t *testing.T) {
	web := &fakeWeb{key: "old", records: liveRecords(2), gate: make(chan struct{})}
	svc := newService(web, true)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Search(ctx, "reforma", 1, 10)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return web.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	key := "rotated"
	svc.UpdateConfig(ctx, ConfigUpdate{APIKey: &key})
	close(web.gate)
	<-done
	assert.Equal(t, 0, svc.Stats(ctx).Size)

	p, err := svc.Search(ctx, "reforma", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.SetOriginLive, p.Origin)
	assert.Equal(t, int32(2), web.calls.Load())
}

func TestUpdateConfig_EmptyKeyReturnsToDemoMode(t *testing.T) {
	web := &fakeWeb{key: "k", records: liveRecords(2)}
	svc := newService(web, true)
	ctx := context.Background()

	empty := ""
	got := svc.UpdateConfig(ctx, ConfigUpdate{APIKey: &empty})
	assert.False(t, got.APIKeyConfigured)

	p, err := svc.Search(ctx, "registraduría", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.SetOriginFallback, p.Origin)
	assert.Equal(t, int32(0), web.calls.Load())
}
