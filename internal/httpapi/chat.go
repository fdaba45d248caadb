package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/m2tx/margin_agent/internal/agent"
	"github.com/m2tx/margin_agent/internal/model"
)

const sessionHeader = "X-Session-Id"

type chatRequest struct {
	ProjectID string       `json:"projectId"`
	Messages  []model.Turn `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Checked here so a bad request never reaches the model host.
	if strings.TrimSpace(req.ProjectID) == "" {
		writeError(w, http.StatusBadRequest, agent.ErrMissingProjectID.Error())
		return
	}
	if !s.agent.Configured() {
		status, message := s.mapAgentError(agent.ErrModelHostNotConfigured)
		writeError(w, status, message)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	sessionID := uuid.NewString()
	w.Header().Set(sessionHeader, sessionID)
	stream := newTextStream(w)

	result, err := s.agent.Run(ctx, agent.Request{
		SessionID: sessionID,
		ProjectID: req.ProjectID,
		Messages:  req.Messages,
	}, stream.Write)
	if err != nil {
		s.logger.Warn("chat turn failed",
			slog.String("session_id", sessionID),
			slog.Bool("streaming", stream.started),
			slog.Any("error", err),
		)
		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = "request timed out"
		}
		if !stream.started {
			status, _ := s.mapAgentError(err)
			writeError(w, status, message)
			return
		}
		stream.writeError(message)
		return
	}

	s.logger.Info("chat turn completed",
		slog.String("session_id", sessionID),
		slog.Int("steps", result.Steps),
		slog.Int("tool_calls", len(result.Invocations)),
		slog.Bool("degraded", result.Degraded),
	)
	// A turn can legitimately end without any text.
	stream.start()
}

// textStream writes model text to the response as plain-text chunks, flushing
// after each one. Headers are committed on the first chunk so errors raised
// before any output can still be reported with a JSON status.
type textStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newTextStream(w http.ResponseWriter) *textStream {
	flusher, _ := w.(http.Flusher)
	return &textStream{w: w, flusher: flusher}
}

func (t *textStream) start() {
	if t.started {
		return
	}
	t.started = true
	h := t.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	t.w.WriteHeader(http.StatusOK)
}

func (t *textStream) Write(chunk string) error {
	if chunk == "" {
		return nil
	}
	t.start()
	if _, err := io.WriteString(t.w, chunk); err != nil {
		return err
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

func (t *textStream) writeError(message string) {
	_ = t.Write("\n[error] " + message)
}
