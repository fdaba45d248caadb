package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	transcript, err := s.agent.GetTranscript(r.Context(), sessionID)
	if err != nil {
		status, message := s.mapAgentError(err)
		writeError(w, status, message)
		return
	}
	if transcript == nil {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := s.agent.DeleteTranscript(r.Context(), sessionID); err != nil {
		status, message := s.mapAgentError(err)
		writeError(w, status, message)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
