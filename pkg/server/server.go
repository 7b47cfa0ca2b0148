// Package server exposes a connector over HTTP. Each command is posted as a
// JSON envelope and its output records are streamed back as NDJSON.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

const contentTypeNDJSON = "application/x-ndjson"

// Dispatcher executes command envelopes.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, cmd connector.Command, emit connector.Emitter) error
}

// Server serves connector commands over HTTP.
type Server struct {
	dispatcher Dispatcher
	log        logrus.FieldLogger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a Server for d.
func New(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/commands", s.handleCommand)
	return r
}

// ErrorBody is the JSON error document returned by the server.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed command.
type ErrorDetail struct {
	Category connector.ErrorCategory `json:"category"`
	Message  string                  `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"connector": s.dispatcher.Name(),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("request_id", chimw.GetReqID(r.Context()))

	var cmd connector.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, connector.ErrValidation("invalid command envelope").WithCause(err))
		return
	}

	out := &streamEmitter{w: w}
	err := s.dispatcher.Dispatch(r.Context(), cmd, out)
	if err == nil {
		if !out.started() {
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	if !out.started() {
		writeError(w, err)
		return
	}
	// Headers are gone; report the failure as a trailing record.
	log.WithError(err).Warn("command failed after streaming began")
	_ = out.write(errorBody(err))
}

// StatusFor maps an error category to an HTTP status code.
func StatusFor(category connector.ErrorCategory) int {
	switch category {
	case connector.ErrCategoryValidation:
		return http.StatusBadRequest
	case connector.ErrCategoryNotFound:
		return http.StatusNotFound
	case connector.ErrCategoryUnsupported:
		return http.StatusNotImplemented
	case connector.ErrCategoryConnectivity, connector.ErrCategoryRemote, connector.ErrCategoryPagination:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorBody(err error) ErrorBody {
	return ErrorBody{Error: ErrorDetail{
		Category: connector.CategoryOf(err),
		Message:  err.Error(),
	}}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(connector.CategoryOf(err)))
	_ = json.NewEncoder(w).Encode(errorBody(err))
}

// streamEmitter writes each record as one NDJSON line and flushes it.
type streamEmitter struct {
	mu    sync.Mutex
	w     http.ResponseWriter
	begun bool
}

func (e *streamEmitter) Send(_ context.Context, record interface{}) error {
	return e.write(record)
}

func (e *streamEmitter) write(record interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.begun {
		e.w.Header().Set("Content-Type", contentTypeNDJSON)
		e.w.WriteHeader(http.StatusOK)
		e.begun = true
	}
	if err := json.NewEncoder(e.w).Encode(record); err != nil {
		return err
	}
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (e *streamEmitter) started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.begun
}
