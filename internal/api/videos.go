package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/nuestro-pulso/pulso-search/internal/aggregate"
	"github.com/nuestro-pulso/pulso-search/internal/api/respond"
	"github.com/nuestro-pulso/pulso-search/internal/api/validate"
	"github.com/nuestro-pulso/pulso-search/internal/cache"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/source"
)

// VideoNamespace prefixes every video cache key.
const VideoNamespace = "videos"

// DefaultVideoTerm is searched when a search-mode request carries no term.
const DefaultVideoTerm = "noticias Colombia"

type VideoOptions struct {
	MaxLimit     int
	DefaultLimit int
	Version      string
	Production   bool
}

// VideoHandler serves the video-search proxy.
type VideoHandler struct {
	agg      *aggregate.Aggregator
	upstream source.Adapter
	opts     VideoOptions
	clk      clock.Clock
}

func NewVideoHandler(agg *aggregate.Aggregator, upstream source.Adapter, opts VideoOptions, clk clock.Clock) *VideoHandler {
	return &VideoHandler{agg: agg, upstream: upstream, opts: opts, clk: clk}
}

type videoResponse struct {
	Videos       []model.ResultRecord `json:"videos"`
	TotalResults int                  `json:"totalResults"`
	Query        string               `json:"query"`
	Timestamp    string               `json:"timestamp"`
	RequestType  model.Mode           `json:"requestType"`
	Limit        int                  `json:"limit"`
	Origin       model.SetOrigin      `json:"origin"`
}

// Search handles GET /videos?q=&limit=&mode=
func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	mode, err := model.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	h.serve(w, r, mode)
}

// Trending handles GET /videos/trending?limit=
func (h *VideoHandler) Trending(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, model.ModeTrending)
}

func (h *VideoHandler) serve(w http.ResponseWriter, r *http.Request, mode model.Mode) {
	params := r.URL.Query()
	limit, err := validate.IntParam("limit", params.Get("limit"), h.opts.DefaultLimit, 1, h.opts.MaxLimit)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	term, err := validate.Term(params.Get("q"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	switch mode {
	case model.ModeTrending:
		term = ""
	default:
		if term == "" {
			term = DefaultVideoTerm
		}
	}

	q := model.NewQuery(VideoNamespace, term, mode, limit)
	rs, err := h.agg.Get(r.Context(), q)
	if err != nil {
		writePipelineError(w, *hlog.FromRequest(r), h.clk, err, h.opts.Production)
		return
	}

	videos := rs.Records
	if videos == nil {
		videos = []model.ResultRecord{}
	}
	respond.WriteJSON(w, http.StatusOK, videoResponse{
		Videos:       videos,
		TotalResults: rs.TotalResults,
		Query:        q.Term,
		Timestamp:    respond.Timestamp(h.clk.Now()),
		RequestType:  mode,
		Limit:        limit,
		Origin:       rs.Origin,
	})
}

// ClearCache handles POST /videos/cache/clear
func (h *VideoHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	clearCache(w, r, h.agg.Invalidate, h.clk, "video cache cleared")
}

// CacheStats handles GET /videos/cache/stats
func (h *VideoHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeCacheStats(w, r, h.agg.Cache(), h.clk)
}

// Health handles GET /videos/health. It reports credential presence and cache
// occupancy without calling the upstream.
func (h *VideoHandler) Health(w http.ResponseWriter, r *http.Request) {
	configured := h.upstream != nil && h.upstream.Configured()
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":           readiness(configured),
		"apiKeyConfigured": configured,
		"fallbackEnabled":  h.agg.FallbackEnabled(),
		"cache":            h.agg.Cache().Stats(r.Context()),
		"timestamp":        respond.Timestamp(h.clk.Now()),
		"version":          h.opts.Version,
	})
}

func readiness(configured bool) string {
	if configured {
		return "ready"
	}
	return "configuration_required"
}

func clearCache(w http.ResponseWriter, r *http.Request, invalidate func(context.Context), clk clock.Clock, msg string) {
	invalidate(r.Context())
	hlog.FromRequest(r).Info().Str("path", r.URL.Path).Msg(msg)
	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"message":   strings.ToUpper(msg[:1]) + msg[1:],
		"timestamp": respond.Timestamp(clk.Now()),
	})
}

func writeCacheStats(w http.ResponseWriter, r *http.Request, c cache.Cache, clk clock.Clock) {
	st := c.Stats(r.Context())
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"size":      st.Size,
		"keys":      st.Keys,
		"timeout":   st.TTLMs,
		"timestamp": respond.Timestamp(clk.Now()),
	})
}
