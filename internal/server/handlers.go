package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/carbon-match/internal/embedding"
	"github.com/spigell/carbon-match/internal/scoring"
)

const checkText = "Carbon removal funding compatibility check."

type errorResponse struct {
	Error string `json:"error"`
}

type allScoresResponse struct {
	Success bool `json:"success"`
	scoring.Scores
}

type checkResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "API is running"})
}

func (s *Server) operation(op Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := DecodeBody(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		score, err := op.Score(r.Context(), s.engine, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true, op.Key: score})
	}
}

func (s *Server) calculateAll(w http.ResponseWriter, r *http.Request) {
	body, err := DecodeBody(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	in, err := AllInputs(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, allScoresResponse{Success: true, Scores: s.engine.All(r.Context(), in)})
}

// testEmbedding calls the configured provider directly, without the fallback.
func (s *Server) testEmbedding(w http.ResponseWriter, r *http.Request) {
	provider := s.engine.Provider()
	if provider == nil {
		writeJSON(w, http.StatusInternalServerError, checkResponse{Error: "no embedding provider configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.engine.Timeout())
	defer cancel()

	name := embedding.NameOf(provider)
	vec, err := provider.Embed(ctx, checkText)
	if err != nil {
		requestLogger(r.Context(), s.logger).Warn("embedding provider check failed", zap.String("provider", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, checkResponse{Provider: name, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		Success:   true,
		Message:   fmt.Sprintf("%s embedding provider connection successful", name),
		Provider:  name,
		Dimension: len(vec),
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		requestLogger(r.Context(), s.logger).Debug("rejecting request", zap.String("reason", verr.Message))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
		return
	}

	requestLogger(r.Context(), s.logger).Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// the status is already sent, nothing useful to do on error
	_ = json.NewEncoder(w).Encode(v)
}
