package service

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/query"
	"github.com/pictoria/pictoria-server/internal/store"
)

// TagService manages tags, tag types, and compound tags.
type TagService struct {
	store    *store.Store
	registry *query.Registry
	logger   *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store *store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:    store,
		registry: query.DefaultRegistry(),
		logger:   logger,
	}
}

// ListTags returns all tags with their image use counts.
func (s *TagService) ListTags(ctx context.Context) ([]store.TagCount, error) {
	return s.store.ListTagsWithCounts(ctx)
}

// UpdateTag renames or retypes a tag.
func (s *TagService) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	if err := tag.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	return s.store.UpdateTag(ctx, tag)
}

// DeleteTag removes a tag and its image links.
func (s *TagService) DeleteTag(ctx context.Context, id int64) error {
	return s.store.DeleteTag(ctx, id)
}

// ResolveRawLabel interprets the shorthand users type when tagging: a leading
// tag-type symbol selects that type for the rest of the label, so "@alice"
// becomes the tag "alice" with the '@' type.
func (s *TagService) ResolveRawLabel(ctx context.Context, raw string) (domain.Tag, error) {
	if raw == "" {
		return domain.Tag{}, errors.Validation("empty tag label")
	}

	if domain.ValidTagLabel(raw) {
		return domain.Tag{Label: raw}, nil
	}

	_, size := utf8.DecodeRuneInString(raw)
	symbol, label := raw[:size], raw[size:]
	if !domain.ValidTagLabel(label) {
		return domain.Tag{}, errors.Validationf("illegal tag label %q", raw)
	}
	typ, err := s.store.GetTagTypeBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Tag{}, errors.Validationf("illegal tag label %q: no tag type with symbol %q", raw, symbol)
		}
		return domain.Tag{}, err
	}
	return domain.Tag{Label: label, TypeID: &typ.ID, Type: typ}, nil
}

// ResolveRawLabels resolves a batch of raw labels.
func (s *TagService) ResolveRawLabels(ctx context.Context, raws []string) ([]domain.Tag, error) {
	tags := make([]domain.Tag, 0, len(raws))
	for _, raw := range raws {
		tag, err := s.ResolveRawLabel(ctx, raw)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// ListTagTypes returns all tag types.
func (s *TagService) ListTagTypes(ctx context.Context) ([]*domain.TagType, error) {
	return s.store.ListTagTypes(ctx)
}

// CreateTagType creates a tag type after validating its label and symbol.
func (s *TagService) CreateTagType(ctx context.Context, typ *domain.TagType) error {
	if err := typ.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	return s.store.CreateTagType(ctx, typ)
}

// UpdateTagType changes a tag type's label, symbol, and color.
func (s *TagService) UpdateTagType(ctx context.Context, typ *domain.TagType) error {
	if err := typ.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	return s.store.UpdateTagType(ctx, typ)
}

// DeleteTagType removes a tag type. Tags carrying it become untyped.
func (s *TagService) DeleteTagType(ctx context.Context, id int64) error {
	return s.store.DeleteTagType(ctx, id)
}

// ListCompoundTags returns all compound tags.
func (s *TagService) ListCompoundTags(ctx context.Context) ([]*domain.CompoundTag, error) {
	return s.store.ListCompoundTags(ctx)
}

// CreateCompoundTag stores a compound tag after checking that its definition
// compiles against the definitions already in effect. A definition that does
// not compile is rejected; it would poison every query mentioning the label.
func (s *TagService) CreateCompoundTag(ctx context.Context, tag *domain.CompoundTag) error {
	if err := tag.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	if err := s.checkDefinition(ctx, tag.Label, tag.Definition); err != nil {
		return err
	}
	return s.store.CreateCompoundTag(ctx, tag)
}

// UpdateCompoundTag changes a compound tag, re-checking its definition.
func (s *TagService) UpdateCompoundTag(ctx context.Context, tag *domain.CompoundTag) error {
	if err := tag.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	if err := s.checkDefinition(ctx, tag.Label, tag.Definition); err != nil {
		return err
	}
	return s.store.UpdateCompoundTag(ctx, tag)
}

// DeleteCompoundTag removes a compound tag.
func (s *TagService) DeleteCompoundTag(ctx context.Context, id int64) error {
	return s.store.DeleteCompoundTag(ctx, id)
}

// checkDefinition expands and parses a candidate definition with the stored
// definitions in effect plus the candidate itself, so self-reference is
// caught as a recursion error before the tag is saved.
func (s *TagService) checkDefinition(ctx context.Context, label, definition string) error {
	defs, err := s.store.CompoundTagDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load compound tags: %w", err)
	}
	defs[label] = definition

	pipeline := query.Pipeline{Definitions: defs, Registry: s.registry}
	if _, err := pipeline.ParseNormalized(definition); err != nil {
		return errors.Wrap(err, errors.CodeValidation,
			fmt.Sprintf("definition of %q does not compile: %v", label, err))
	}
	return nil
}
