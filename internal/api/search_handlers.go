package api

import (
	"net/http"

	"github.com/pictoria/pictoria-server/internal/http/response"
)

// handleSearch compiles and executes the q parameter as a tag query. With
// explain=true the generated SQL is returned instead of the result set.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")

	if r.URL.Query().Get("explain") == "true" {
		compiled, err := s.search.CompileSQL(r.Context(), raw)
		if err != nil {
			response.DomainError(w, err, s.logger)
			return
		}
		response.Success(w, map[string]any{
			"sql":   compiled.SQL,
			"args":  compiled.Args,
			"empty": compiled.Empty,
		}, s.logger)
		return
	}

	images, err := s.search.Search(r.Context(), raw)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, images, s.logger)
}
