package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/nuestro-pulso/pulso-search/internal/api/respond"
	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
)

// RetryAfterSeconds is advertised to clients after an upstream quota error.
const RetryAfterSeconds = 3600

// writePipelineError maps a pipeline failure onto the HTTP error envelope.
// Upstream detail is only exposed outside production.
func writePipelineError(w http.ResponseWriter, log zerolog.Logger, clk clock.Clock, err error, production bool) {
	resp := respond.ErrorResponse{Timestamp: respond.Timestamp(clk.Now())}
	kind, isUpstream := model.KindOf(err)

	switch {
	case errors.Is(err, model.ErrValidation):
		resp.Code = http.StatusBadRequest
		resp.Message = err.Error()
		respond.WriteErrorResponse(w, resp)
		return
	case errors.Is(err, model.ErrNotConfigured):
		resp.Code = http.StatusInternalServerError
		resp.Message = "upstream not configured and fallback disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp.Code = http.StatusInternalServerError
		resp.Message = "request cancelled"
	case isUpstream && kind == model.KindUnauthorized:
		resp.Code = http.StatusUnauthorized
		resp.Message = "upstream rejected the configured credential"
	case isUpstream && kind == model.KindRateLimited:
		resp.Code = http.StatusTooManyRequests
		resp.Message = "upstream quota exceeded"
		resp.RetryAfter = RetryAfterSeconds
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	case isUpstream && kind == model.KindBadRequest:
		resp.Code = http.StatusInternalServerError
		resp.Message = "upstream rejected the request"
	default:
		resp.Code = http.StatusInternalServerError
		resp.Message = "upstream unavailable"
	}

	if !production {
		resp.Detail = err.Error()
	}
	log.Warn().Err(err).Int("status", resp.Code).Msg("request failed")
	respond.WriteErrorResponse(w, resp)
}
