package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pictoria/pictoria-server/internal/http/response"
)

// decodeBody decodes and validates a JSON request body. A false return means
// the error response has already been written.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		response.BadRequest(w, "malformed JSON body", s.logger)
		return false
	}
	if err := s.validator.Validate(dst); err != nil {
		response.DomainError(w, err, s.logger)
		return false
	}
	return true
}

// idParam parses the {id} URL parameter. A false return means the error
// response has already been written.
func (s *Server) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid id", s.logger)
		return 0, false
	}
	return id, true
}
