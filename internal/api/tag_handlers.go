package api

import (
	"net/http"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/http/response"
)

// UpdateTagRequest is the body for PUT /tags/{id}.
type UpdateTagRequest struct {
	Label  string `json:"label" validate:"required"`
	TypeID *int64 `json:"type_id,omitempty"`
}

// TagTypeRequest is the body for creating or updating a tag type.
type TagTypeRequest struct {
	Label  string `json:"label" validate:"required"`
	Symbol string `json:"symbol" validate:"required"`
	Color  int32  `json:"color,omitempty"`
}

// CompoundTagRequest is the body for creating or updating a compound tag.
type CompoundTagRequest struct {
	Label      string `json:"label" validate:"required"`
	TypeID     *int64 `json:"type_id,omitempty"`
	Definition string `json:"definition" validate:"required"`
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.ListTags(r.Context())
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, tags, s.logger)
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	var req UpdateTagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	tag := &domain.Tag{ID: id, Label: req.Label, TypeID: req.TypeID}
	if err := s.tags.UpdateTag(r.Context(), tag); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, tag, s.logger)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	if err := s.tags.DeleteTag(r.Context(), id); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleListTagTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.tags.ListTagTypes(r.Context())
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, types, s.logger)
}

func (s *Server) handleCreateTagType(w http.ResponseWriter, r *http.Request) {
	var req TagTypeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	typ := &domain.TagType{Label: req.Label, Symbol: req.Symbol, Color: req.Color}
	if err := s.tags.CreateTagType(r.Context(), typ); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Created(w, typ, s.logger)
}

func (s *Server) handleUpdateTagType(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	var req TagTypeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	typ := &domain.TagType{ID: id, Label: req.Label, Symbol: req.Symbol, Color: req.Color}
	if err := s.tags.UpdateTagType(r.Context(), typ); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, typ, s.logger)
}

func (s *Server) handleDeleteTagType(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	if err := s.tags.DeleteTagType(r.Context(), id); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleListCompoundTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.ListCompoundTags(r.Context())
	if err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, tags, s.logger)
}

func (s *Server) handleCreateCompoundTag(w http.ResponseWriter, r *http.Request) {
	var req CompoundTagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	ct := &domain.CompoundTag{
		Tag:        domain.Tag{Label: req.Label, TypeID: req.TypeID},
		Definition: req.Definition,
	}
	if err := s.tags.CreateCompoundTag(r.Context(), ct); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Created(w, ct, s.logger)
}

func (s *Server) handleUpdateCompoundTag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	var req CompoundTagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	ct := &domain.CompoundTag{
		Tag:        domain.Tag{ID: id, Label: req.Label, TypeID: req.TypeID},
		Definition: req.Definition,
	}
	if err := s.tags.UpdateCompoundTag(r.Context(), ct); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.Success(w, ct, s.logger)
}

func (s *Server) handleDeleteCompoundTag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	if err := s.tags.DeleteCompoundTag(r.Context(), id); err != nil {
		response.DomainError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
