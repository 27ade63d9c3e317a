package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuestro-pulso/pulso-search/internal/model"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{"status":"ok","totalResults":3,"articles":[
 {"source":{"name":"El Tiempo"},"title":"🔥 Reforma   a la salud","description":"Debate en el Congreso","url":"https://example.co/a","urlToImage":"https://example.co/a.jpg","publishedAt":"2025-05-30T10:00:00Z"},
 {"source":{"name":"Semana"},"title":"[Removed]","url":"https://removed.com"},
 {"source":{"name":"El Espectador"},"title":"Elecciones regionales","description":"","url":"https://example.co/b","publishedAt":"bad-date"}
]}`

func TestFetch_NormalizesArticles(t *testing.T) {
	srv := newServer(t, http.StatusOK, okBody)
	a := New(Config{APIKey: "secret", BaseURL: srv.URL, Language: "es", Timeout: time.Second}, zerolog.Nop())

	recs, err := a.Fetch(context.Background(), model.NewQuery("search", "reforma", model.ModeSearch, 10))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Reforma a la salud", recs[0].Title)
	assert.Equal(t, "El Tiempo", recs[0].Source)
	assert.Equal(t, 100.0, recs[0].RelevanceScore)
	assert.Equal(t, 95.0, recs[1].RelevanceScore)
	assert.Equal(t, model.OriginUpstream, recs[1].Origin)
	assert.True(t, recs[1].PublishedAt.IsZero())
	assert.NotEmpty(t, recs[0].ID)

	again, err := a.Fetch(context.Background(), model.NewQuery("search", "reforma", model.ModeSearch, 10))
	require.NoError(t, err)
	assert.Equal(t, recs[0].ID, again[0].ID, "ids derive from the article URL")
}

func TestFetch_MissingArticlesRejected(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"status":"ok","totalResults":0}`)
	a := New(Config{APIKey: "secret", BaseURL: srv.URL}, zerolog.Nop())

	_, err := a.Fetch(context.Background(), model.NewQuery("search", "x", model.ModeSearch, 10))
	k, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnavailable, k)
}

func TestFetch_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   model.Kind
	}{
		{"rate limited", 429, `{"status":"error","code":"rateLimited","message":"slow down"}`, model.KindRateLimited},
		{"bad request", 400, `{"status":"error","code":"parameterInvalid","message":"bad q"}`, model.KindBadRequest},
		{"key disabled", 400, `{"status":"error","code":"apiKeyDisabled","message":"off"}`, model.KindUnauthorized},
		{"server", 502, `<html>bad gateway</html>`, model.KindUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.status, tc.body)
			a := New(Config{APIKey: "secret", BaseURL: srv.URL}, zerolog.Nop())
			_, err := a.Fetch(context.Background(), model.NewQuery("search", "x", model.ModeSearch, 10))
			k, ok := model.KindOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tc.want, k)
		})
	}
}

func TestFetch_WrongKeyUnauthorized(t *testing.T) {
	srv := newServer(t, http.StatusOK, okBody)
	a := New(Config{APIKey: "wrong", BaseURL: srv.URL}, zerolog.Nop())
	_, err := a.Fetch(context.Background(), model.NewQuery("search", "x", model.ModeSearch, 10))
	k, _ := model.KindOf(err)
	assert.Equal(t, model.KindUnauthorized, k)
}

func TestFetch_NetworkFailureUnavailable(t *testing.T) {
	a := New(Config{APIKey: "secret", BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, zerolog.Nop())
	_, err := a.Fetch(context.Background(), model.NewQuery("search", "x", model.ModeSearch, 10))
	k, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.KindUnavailable, k)
}

func TestReconfigure(t *testing.T) {
	srv := newServer(t, http.StatusOK, okBody)
	a := New(Config{BaseURL: "http://127.0.0.1:1"}, zerolog.Nop())
	assert.False(t, a.Configured())
	_, err := a.Fetch(context.Background(), model.Query{})
	assert.ErrorIs(t, err, model.ErrNotConfigured)

	key, base := "secret", srv.URL+"/"
	a.Reconfigure(&key, &base)
	assert.True(t, a.Configured())
	assert.True(t, strings.HasPrefix(a.BaseURL(), srv.URL))

	recs, err := a.Fetch(context.Background(), model.NewQuery("search", "reforma", model.ModeSearch, 5))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	a.Reconfigure(nil, nil)
	assert.True(t, a.Configured(), "nil values keep the current setting")
	assert.True(t, strings.HasPrefix(a.BaseURL(), srv.URL))

	empty := ""
	a.Reconfigure(&empty, nil)
	assert.False(t, a.Configured(), "an explicit empty key switches to demo mode")
	assert.True(t, strings.HasPrefix(a.BaseURL(), srv.URL))
	_, err = a.Fetch(context.Background(), model.NewQuery("search", "reforma", model.ModeSearch, 5))
	assert.ErrorIs(t, err, model.ErrNotConfigured)
}
