package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/m2tx/margin_agent/internal/agent"
)

const maxRequestBodyBytes = 1 << 20

type apiErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain exactly one JSON object")
	}

	return nil
}

func (s *Server) mapAgentError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrMissingProjectID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, agent.ErrModelHostNotConfigured):
		if s.credentialHint != "" {
			return http.StatusInternalServerError, s.credentialHint + " is not set"
		}
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, agent.ErrNoRepository):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
