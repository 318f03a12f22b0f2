// Package http exposes a Plug to remote responders and UIs over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/promptplug"
	"github.com/aretw0/promptplug/pkg/plug"
	"github.com/aretw0/promptplug/pkg/ports"
	"github.com/aretw0/promptplug/pkg/response"
	"github.com/aretw0/promptplug/pkg/ui"
	"github.com/go-chi/chi/v5"
)

// Coordinator is the subset of *plug.Plug served over HTTP.
type Coordinator interface {
	Start(root ui.Element) (string, error)
	WaitFor(ctx context.Context, id string, timeout time.Duration) (any, error)
	Snapshot(now time.Time) (*plug.Snapshot, error)
	Respond(ctx context.Context, id, raw string) (bool, error)
	Remove() bool
	LastResponse(ctx context.Context) (ports.Record, bool)
	Responses(ctx context.Context, limit int) ([]ports.Record, error)
}

var _ Coordinator = (*plug.Plug)(nil)

// RespondResult is the body returned by POST /prompt/{id}/response.
type RespondResult struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// StartResult is the body returned by POST /prompt.
type StartResult struct {
	ID string `json:"id"`
}

// AnswerResult is the body returned by GET /prompt/{id}/answer.
type AnswerResult struct {
	ID    string `json:"id"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// DefaultAnswerTimeout applies when GET /prompt/{id}/answer has no timeout parameter.
const DefaultAnswerTimeout = 30 * time.Second

// MaxAnswerTimeout caps a single long poll; clients poll again after it.
const MaxAnswerTimeout = 5 * time.Minute

// maxElementSize bounds a POST /prompt body.
const maxElementSize = 1 << 20

// Server serves the prompt API.
type Server struct {
	Plug    Coordinator
	Streams *StreamManager
	Station string

	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager that is also registered as a plug state listener.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetricsHandler mounts h (typically promhttp) at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStation names the station reported by /info.
func WithStation(name string) Option {
	return func(s *Server) {
		s.Station = name
	}
}

// NewHandler creates the HTTP handler for p.
func NewHandler(p Coordinator, opts ...Option) http.Handler {
	s := &Server{
		Plug:   p,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/prompt", func(r chi.Router) {
		r.Get("/", s.GetPrompt)
		r.Post("/", s.PostPrompt)
		r.Delete("/", s.DeletePrompt)
		r.Post("/{id}/response", s.PostResponse)
		r.Get("/{id}/answer", s.GetAnswer)
	})
	r.Get("/responses", s.GetResponses)
	r.Get("/responses/last", s.GetLastResponse)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrompt handles GET /prompt. It answers 204 when no prompt is active.
func (s *Server) GetPrompt(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Plug.Snapshot(time.Now())
	if err != nil {
		http.Error(w, fmt.Sprintf("Snapshot error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Snapshot failed", "error", err)
		return
	}
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, snap)
}

// PostPrompt handles POST /prompt. The body is a serialized element tree
// (JSON or YAML); the new prompt replaces any active one.
func (s *Server) PostPrompt(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxElementSize+1))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxElementSize {
		http.Error(w, "Element too large", http.StatusRequestEntityTooLarge)
		return
	}

	var root ui.StaticElement
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		root, err = ui.ParseYAML(body)
	} else {
		root, err = ui.ParseJSON(body)
	}
	if err != nil {
		s.logger.Warn("PostPrompt: Invalid element", "error", err)
		http.Error(w, fmt.Sprintf("Invalid element: %v", err), http.StatusBadRequest)
		return
	}

	id, err := s.Plug.Start(root)
	if err != nil {
		http.Error(w, fmt.Sprintf("Start error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, StartResult{ID: id})
}

// GetAnswer handles GET /prompt/{id}/answer, a long poll for the decoded
// answer bounded by the timeout query parameter.
func (s *Server) GetAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	timeout := DefaultAnswerTimeout
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			http.Error(w, "Invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = d
	}
	timeout = min(timeout, MaxAnswerTimeout)

	value, err := s.Plug.WaitFor(r.Context(), id, timeout)
	switch {
	case err == nil:
		writeJSON(w, s.logger, http.StatusOK, AnswerResult{ID: id, Value: value})
	case errors.Is(err, plug.ErrPromptUnanswered):
		writeJSON(w, s.logger, http.StatusRequestTimeout, AnswerResult{ID: id, Error: err.Error()})
	case errors.Is(err, plug.ErrPromptCancelled):
		writeJSON(w, s.logger, http.StatusGone, AnswerResult{ID: id, Error: err.Error()})
	case errors.Is(err, plug.ErrNoPrompt):
		writeJSON(w, s.logger, http.StatusNotFound, AnswerResult{ID: id, Error: err.Error()})
	case r.Context().Err() != nil:
		s.logger.Debug("GetAnswer: client went away", "prompt_id", id)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PostResponse handles POST /prompt/{id}/response. The body is the raw payload.
func (s *Server) PostResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := response.MaxPayloadSize()
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	raw, err := response.Sanitize(string(body))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, response.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("PostResponse: Payload rejected", "error", err, "size", len(body))
		writeJSON(w, s.logger, status, RespondResult{Error: err.Error()})
		return
	}

	accepted, err := s.Plug.Respond(r.Context(), id, raw)
	switch {
	case err != nil:
		s.logger.Warn("PostResponse: Malformed payload", "prompt_id", id, "error", err)
		writeJSON(w, s.logger, http.StatusBadRequest, RespondResult{Error: err.Error()})
	case !accepted:
		writeJSON(w, s.logger, http.StatusConflict, RespondResult{Error: "no active prompt with this id"})
	default:
		writeJSON(w, s.logger, http.StatusAccepted, RespondResult{Accepted: true})
	}
}

// DeletePrompt handles DELETE /prompt.
func (s *Server) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if !s.Plug.Remove() {
		http.Error(w, "No active prompt", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLastResponse handles GET /responses/last.
func (s *Server) GetLastResponse(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.Plug.LastResponse(r.Context())
	if !ok {
		http.Error(w, "No response recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, rec)
}

// GetResponses handles GET /responses, the journaled responses newest first.
// The optional limit parameter bounds the count.
func (s *Server) GetResponses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.Plug.Responses(r.Context(), limit)
	if err != nil {
		s.logger.Error("GetResponses: journal read failed", "error", err)
		http.Error(w, "Journal unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, recs)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"app":         "plugd",
		"version":     strings.TrimSpace(promptplug.Version),
		"station":     s.Station,
		"subscribers": s.Streams.Len(),
	})
}

// SubscribeEvents handles GET /events (SSE). Each coordinator event is sent
// as one data line; clients fetch /prompt to render it.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}
