package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/pacer"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/aretw0/pacer/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var loadSwagger = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
})

// GetSwagger returns the parsed and validated OpenAPI document served at /openapi.yaml.
func GetSwagger() (*openapi3.T, error) {
	return loadSwagger()
}

// Server exposes an engine over HTTP.
type Server struct {
	Engine    ports.Engine
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	heartbeat time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves the gatherer at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithHeartbeat sets how often idle event streams receive a keepalive comment.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = d
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine:    engine,
		logger:    slog.Default(),
		heartbeat: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})

	r.Get("/config", server.GetConfig)
	r.Put("/config", server.SaveConfig)
	r.Post("/config/reload", server.ReloadConfig)
	r.Post("/active", server.SetActivePattern)
	r.Delete("/active", server.ClearActivePattern)
	r.Get("/status", server.GetStatus)
	r.Get("/events", server.SubscribeEvents)
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActivateRequest is the body of POST /active.
type ActivateRequest struct {
	PatternName string `json:"pattern_name"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Pattern string `json:"pattern,omitempty"`
	Step    *int   `json:"step,omitempty"`
	Field   string `json:"field,omitempty"`
}

// GetConfig handles GET /config.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	var format string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if format == "" && strings.Contains(r.Header.Get("Accept"), "yaml") {
		format = "yaml"
	}

	f := schema.ParseFormat(format)
	data, err := schema.Encode(s.Engine.GetConfig(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if f == schema.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(data)
}

// SaveConfig handles PUT /config. The body is a JSON or YAML pattern document.
func (s *Server) SaveConfig(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if err := s.Engine.SaveConfigBytes(r.Context(), data); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeStatus(w)
}

// ReloadConfig handles POST /config/reload.
func (s *Server) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.ReloadConfig(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeStatus(w)
}

// SetActivePattern handles POST /active.
func (s *Server) SetActivePattern(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validateBody(r); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	var body ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if err := s.Engine.SetActivePattern(r.Context(), body.PatternName); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeStatus(w)
}

// ClearActivePattern handles DELETE /active.
func (s *Server) ClearActivePattern(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.ClearActivePattern(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeStatus(w)
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "pacer-http",
		"version":     strings.TrimSpace(pacer.Version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles the GET /events request (SSE).
// With ?initial=true the current selection is sent before any live event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	var initial bool
	if err := runtime.BindQueryParameter("form", true, false, "initial", r.URL.Query(), &initial); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sub := s.Engine.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	if initial {
		st := s.Engine.Status()
		writeEvent(w, domain.PatternSelected{Name: st.ActivePattern, RunID: st.RunID, Timestamp: time.Now()})
	}
	flusher.Flush()

	s.logger.Info("SSE: Client subscribed", "initial", initial)

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case evt, ok := <-sub.C():
			if !ok {
				return
			}
			writeEvent(w, evt)
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, evt domain.PatternSelected) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", domain.EventPatternSelected, data)
}

// validateBody checks the request body against the operation's OpenAPI schema.
// The body is restored so handlers can decode it afterwards.
func validateBody(r *http.Request) error {
	doc, err := GetSwagger()
	if err != nil {
		return err
	}
	item := doc.Paths.Find(r.URL.Path)
	if item == nil {
		return fmt.Errorf("no OpenAPI path for %s", r.URL.Path)
	}
	op := item.GetOperation(r.Method)
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}

	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "application/json")
	}
	input := &openapi3filter.RequestValidationInput{
		Request: r,
		Options: &openapi3filter.Options{MultiError: false},
	}
	return openapi3filter.ValidateRequestBody(context.Background(), input, op.RequestBody.Value)
}

var errBadRequest = errors.New("bad request")

func (s *Server) writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.Engine.Status())
}

// writeError maps engine errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		resp.Pattern = verr.Pattern
		resp.Field = verr.Field
		if verr.Step >= 0 {
			step := verr.Step
			resp.Step = &step
		}
	}

	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	} else {
		s.logger.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	}
	writeJSON(w, code, resp)
}

// StatusCode returns the HTTP status for an engine error.
func StatusCode(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPatternNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
