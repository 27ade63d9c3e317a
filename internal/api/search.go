package api

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/nuestro-pulso/pulso-search/internal/api/respond"
	"github.com/nuestro-pulso/pulso-search/internal/api/validate"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/universal"
)

type SearchOptions struct {
	DefaultPageSize int
	MaxPageSize     int
	Version         string
	Production      bool
}

// SearchHandler serves the universal web/news search surface.
type SearchHandler struct {
	svc  *universal.Service
	opts SearchOptions
	clk  clock.Clock
}

func NewSearchHandler(svc *universal.Service, opts SearchOptions, clk clock.Clock) *SearchHandler {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = validate.MaxWebResults
	}
	return &SearchHandler{svc: svc, opts: opts, clk: clk}
}

type searchResponse struct {
	universal.SearchPage
	Timestamp string `json:"timestamp"`
}

// Search handles GET /search?q=&page=&pageSize=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	term, err := validate.Term(params.Get("q"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	page, err := validate.IntParam("page", params.Get("page"), 1, 1, 1<<20)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	pageSize, err := validate.IntParam("pageSize", params.Get("pageSize"), h.opts.DefaultPageSize, 1, h.opts.MaxPageSize)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	res, err := h.svc.Search(r.Context(), term, page, pageSize)
	if err != nil {
		writePipelineError(w, *hlog.FromRequest(r), h.clk, err, h.opts.Production)
		return
	}
	respond.WriteJSON(w, http.StatusOK, searchResponse{SearchPage: res, Timestamp: respond.Timestamp(h.clk.Now())})
}

// ClearCache handles POST /search/cache/clear
func (h *SearchHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	clearCache(w, r, h.svc.Clear, h.clk, "search cache cleared")
}

// CacheStats handles GET /search/cache/stats
func (h *SearchHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeCacheStats(w, r, h.svc.Cache(), h.clk)
}

// UpdateConfig handles PUT /search/config. Absent fields keep their value.
func (h *SearchHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var u universal.ConfigUpdate
	if err := decodeBody(r, &u); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if u.BaseURL != nil {
		if err := validate.BaseURL(*u.BaseURL); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	if u.MaxResults != nil {
		if err := validate.MaxResults(*u.MaxResults); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	settings := h.svc.UpdateConfig(r.Context(), u)
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Search configuration updated",
		"settings":  settings,
		"timestamp": respond.Timestamp(h.clk.Now()),
	})
}

// Health handles GET /search/health without calling the upstream.
func (h *SearchHandler) Health(w http.ResponseWriter, r *http.Request) {
	settings := h.svc.Settings()
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":           readiness(settings.APIKeyConfigured),
		"apiKeyConfigured": settings.APIKeyConfigured,
		"settings":         settings,
		"cache":            h.svc.Stats(r.Context()),
		"timestamp":        respond.Timestamp(h.clk.Now()),
		"version":          h.opts.Version,
	})
}
