// Package api exposes the Tracker over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	maxBodyBytes      = 1 << 20
)

// Options configures the HTTP layer.
type Options struct {
	// AllowedOrigins feeds the CORS policy. Empty allows every origin.
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

// Server routes HTTP requests to a Tracker.
type Server struct {
	tracker  *engine.Tracker
	metrics  *metrics.Metrics
	validate *validator.Validate
	router   *mux.Router
	handler  http.Handler
}

// NewServer builds the router and middleware chain.
func NewServer(tracker *engine.Tracker, opts Options) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	s := &Server{
		tracker:  tracker,
		metrics:  opts.Metrics,
		validate: v,
		router:   mux.NewRouter(),
	}
	s.routes()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = c.Handler(s.router)
	return s
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() {
	r := s.router
	r.Use(s.traceMiddleware, s.metricsMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/factors", s.listFactors).Methods(http.MethodGet)

	users := r.PathPrefix("/users/{userId}").Subrouter()
	users.HandleFunc("/activities", s.recordActivity).Methods(http.MethodPost)
	users.HandleFunc("/activities", s.listActivities).Methods(http.MethodGet)
	users.HandleFunc("/statistics", s.getStatistics).Methods(http.MethodGet)
	users.HandleFunc("/statistics/recompute", s.recomputeStatistics).Methods(http.MethodPost)
	users.HandleFunc("/summary", s.getSummary).Methods(http.MethodGet)
	users.HandleFunc("/evaluate", s.evaluate).Methods(http.MethodPost)
	users.HandleFunc("/goals", s.getGoals).Methods(http.MethodGet)
	users.HandleFunc("/goals", s.updateGoals).Methods(http.MethodPut)
	users.HandleFunc("/insights", s.listInsights).Methods(http.MethodGet)
	users.HandleFunc("/achievements", s.listAchievements).Methods(http.MethodGet)

	r.HandleFunc("/activities/{id}", s.getActivity).Methods(http.MethodGet)
	r.HandleFunc("/activities/{id}", s.patchActivity).Methods(http.MethodPatch)
	r.HandleFunc("/activities/{id}", s.deleteActivity).Methods(http.MethodDelete)
	r.HandleFunc("/insights/{id}/adopt", s.adoptInsight).Methods(http.MethodPost)
}

// jsonFieldName reports validation failures under their JSON names.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	log := logging.FromContext(ctx).With().Str("component", "api").Logger()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Ctx(ctx).Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	log.Info().Ctx(ctx).Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
