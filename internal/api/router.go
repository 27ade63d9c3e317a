package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/nuestro-pulso/pulso-search/internal/api/recovery"
)

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Videos  *VideoHandler
	Search  *SearchHandler
	Health  *HealthHandler
	Metrics http.Handler
}

// NewRouter mounts the video and universal search surfaces with access
// logging and panic recovery.
func NewRouter(h Handlers, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(hlog.NewHandler(log))
	router.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	router.Use(recovery.Middleware)

	if h.Health != nil {
		router.HandleFunc("/health", h.Health.CheckHealth).Methods(http.MethodGet)
	}
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}

	// Video proxy
	if v := h.Videos; v != nil {
		router.HandleFunc("/videos", v.Search).Methods(http.MethodGet)
		router.HandleFunc("/videos/trending", v.Trending).Methods(http.MethodGet)
		router.HandleFunc("/videos/cache/clear", v.ClearCache).Methods(http.MethodPost)
		router.HandleFunc("/videos/cache/stats", v.CacheStats).Methods(http.MethodGet)
		router.HandleFunc("/videos/health", v.Health).Methods(http.MethodGet)
	}

	// Universal search
	if s := h.Search; s != nil {
		router.HandleFunc("/search", s.Search).Methods(http.MethodGet)
		router.HandleFunc("/search/cache/clear", s.ClearCache).Methods(http.MethodPost)
		router.HandleFunc("/search/cache/stats", s.CacheStats).Methods(http.MethodGet)
		router.HandleFunc("/search/config", s.UpdateConfig).Methods(http.MethodPut)
		router.HandleFunc("/search/health", s.Health).Methods(http.MethodGet)
	}

	return router
}
