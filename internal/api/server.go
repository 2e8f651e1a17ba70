// Package api implements the HTTP reduction service.
//
// The service exposes the same pipeline as the CLI: POST a case plus
// options, receive the reduction result. Rendered artifacts other than
// JSON are returned base64-encoded inside the response body.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
	"github.com/gridtools/gridfold/pkg/pipeline"
)

// Server handles HTTP requests for the reduction service.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewServer creates a server around a pipeline runner.
func NewServer(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Routes builds the HTTP route tree.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/reduce", s.handleReduce)

	return r
}

// ReduceRequest is the POST /api/reduce request body.
type ReduceRequest struct {
	Case    *network.Network `json:"case"`
	Options pipeline.Options `json:"options"`
}

// ReduceResponse is the POST /api/reduce response body.
type ReduceResponse struct {
	*pipeline.Result
	// Artifacts holds non-JSON outputs, base64-encoded by encoding/json.
	Artifacts map[string][]byte `json:"artifacts,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReduce(w http.ResponseWriter, r *http.Request) {
	var req ReduceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidCase, err, "parse request body"))
		return
	}
	if req.Case == nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidCase, "request has no case"))
		return
	}

	res, err := s.runner.Execute(r.Context(), req.Case, req.Options)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := ReduceResponse{Result: res}
	for format, data := range res.Artifacts {
		if format == pipeline.FormatJSON {
			continue // the result itself is the JSON artifact
		}
		if resp.Artifacts == nil {
			resp.Artifacts = make(map[string][]byte)
		}
		resp.Artifacts[format] = data
	}
	writeJSON(w, http.StatusOK, resp)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

// writeError maps error codes to HTTP status: configuration problems are
// the client's fault (400), a missing collaborator is 503, the rest 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsConfig(err), errors.Is(err, errors.ErrCodeDegenerateNode):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeServiceUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{
		Error: errors.UserMessage(err),
		Code:  errors.GetCode(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
