package api

import (
	"net/http"

	"github.com/pictoria/pictoria-server/internal/http/response"
)

// IngestImageRequest is the body for POST /images.
type IngestImageRequest struct {
	// Path is the image file to catalogue, absolute or relative to the
	// server's working directory.
	Path string `json:"path" validate:"required"`
	// Tags are raw labels, optionally prefixed with a tag-type symbol.
	Tags []string `json:"tags,omitempty"`
	// Force bypasses both duplicate gates.
	Force bool `json:"force,omitempty"`
}

// RetagImageRequest is the body for PUT /images/{id}/tags.
type RetagImageRequest struct {
	Tags []string `json:"tags" validate:"required"`
}

func (s *Server) handleIngestImage(w http.ResponseWriter, r *http.Request) {
	var req IngestImageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	tags, err := s.tags.ResolveRawLabels(r.Context(), req.Tags)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}

	img, err := s.library.Ingest(r.Context(), req.Path, tags, req.Force)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Created(w, img, s.logger)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}

	img, err := s.library.GetImage(r.Context(), id)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	tags, err := s.library.ImageTags(r.Context(), id)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{"image": img, "tags": tags}, s.logger)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	if err := s.library.DeleteImage(r.Context(), id); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleRetagImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	var req RetagImageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	tags, err := s.tags.ResolveRawLabels(r.Context(), req.Tags)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	if err := s.library.RetagImage(r.Context(), id, tags); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleRefreshImage recomputes an image's fingerprint after its file was
// replaced in place.
func (s *Server) handleRefreshImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	img, err := s.library.ReplaceFile(r.Context(), id)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, img, s.logger)
}

func (s *Server) handleSimilarImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	results, err := s.library.SimilarImages(r.Context(), id)
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, results, s.logger)
}

func (s *Server) handleUntaggedImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.search.Untagged(r.Context())
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, images, s.logger)
}
