package server

import "net/http"

// handleHealth is the liveness probe. It never touches backing services so a
// degraded database cannot fail the probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"env":    s.cfg.Env,
	})
}

// handlePing echoes the configured ping message.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": s.cfg.PingMessage,
	})
}
