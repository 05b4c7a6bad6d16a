package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rshade/ecolife/internal/logging"
)

const traceHeader = "X-Trace-Id"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// traceMiddleware attaches a trace id (from X-Trace-Id or freshly generated)
// and a request-scoped logger to the context.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		ctx = logging.ContextWithTraceID(ctx, traceID)
		log := logging.FromContext(ctx).With().
			Str("component", "api").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ctx = logging.WithContext(ctx, log)
		w.Header().Set(traceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// metricsMiddleware records request count, latency and in-flight requests,
// labelled by route template rather than raw path.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.RequestStarted()
		defer s.metrics.RequestFinished()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		logging.FromContext(r.Context()).Debug().Ctx(r.Context()).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request served")
	})
}
