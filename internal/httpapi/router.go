package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/m2tx/margin_agent/internal/agent"
)

const DefaultRequestTimeout = 60 * time.Second

type Server struct {
	agent          *agent.Agent
	logger         *slog.Logger
	requestTimeout time.Duration
	credentialHint string
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestTimeout bounds the wall-clock time of one chat turn.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithCredentialHint names the missing credential in configuration errors,
// e.g. "GEMINI_API_KEY".
func WithCredentialHint(envName string) Option {
	return func(s *Server) {
		s.credentialHint = envName
	}
}

func NewServer(a *agent.Agent, opts ...Option) *Server {
	s := &Server{
		agent:          a,
		logger:         slog.Default(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP surface with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/transcripts/{sessionId}", s.handleGetTranscript).Methods(http.MethodGet)
	r.HandleFunc("/transcripts/{sessionId}", s.handleDeleteTranscript).Methods(http.MethodDelete)
	r.Use(corsMiddleware)

	return requestLoggingMiddleware(s.logger)(r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"configured": s.agent.Configured(),
	})
}
