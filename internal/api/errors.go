package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
)

// HeaderStatisticsStale is set on a successful write whose cached
// statistics could not be dropped. Reads may lag until the next recompute.
const HeaderStatisticsStale = "X-Statistics-Stale"

// writeFailed handles the error of a write. A stale-statistics error still
// means the write was stored, so it only sets HeaderStatisticsStale.
func (s *Server) writeFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ledger.ErrStaleStatistics) {
		w.Header().Set(HeaderStatisticsStale, "true")
		logging.FromContext(r.Context()).Warn().Ctx(r.Context()).Err(err).Msg("write stored with stale statistics")
		return false
	}
	s.writeError(w, r, err)
	return true
}

// errBadRequest marks malformed input detected in the HTTP layer.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, emissions.ErrInvalidActivityType),
		errors.Is(err, emissions.ErrInvalidValue),
		errors.Is(err, emissions.ErrInvalidUnit),
		errors.Is(err, ledger.ErrMissingUser),
		errors.Is(err, ledger.ErrEmptyPatch),
		errors.Is(err, goals.ErrInvalidGoals):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, advisor.ErrInsightNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msg = formatValidationError(verrs)
	}

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Ctx(r.Context()).Err(err).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Ctx(r.Context()).Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func formatValidationError(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		case "gt":
			msgs = append(msgs, field+" must be > "+fe.Param())
		case "gte":
			msgs = append(msgs, field+" must be >= "+fe.Param())
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
