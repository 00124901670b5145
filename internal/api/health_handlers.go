package api

import (
	"net/http"

	"github.com/pictoria/pictoria-server/internal/http/response"
)

// handleHealth reports liveness plus a database round trip.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if _, err := s.tags.ListTagTypes(r.Context()); err != nil {
		status = "unhealthy"
		s.logger.Error("health check database probe failed", "error", err)
	}
	response.Success(w, map[string]string{"status": status}, s.logger)
}
