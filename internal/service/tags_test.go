package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/query"
)

func TestResolveRawLabel(t *testing.T) {
	s := newTestStore(t)
	svc := NewTagService(s, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.CreateTagType(ctx, &domain.TagType{Label: "person", Symbol: "@"}))

	tag, err := svc.ResolveRawLabel(ctx, "beach")
	require.NoError(t, err)
	assert.Equal(t, "beach", tag.Label)
	assert.Nil(t, tag.TypeID)

	tag, err = svc.ResolveRawLabel(ctx, "@alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", tag.Label)
	require.NotNil(t, tag.Type)
	assert.Equal(t, "person", tag.Type.Label)
	assert.Equal(t, "@alice", tag.RawLabel())

	_, err = svc.ResolveRawLabel(ctx, "#alice")
	assert.True(t, errors.Is(err, errors.ErrValidation), "unknown symbol: %v", err)

	_, err = svc.ResolveRawLabel(ctx, "@al ice")
	assert.True(t, errors.Is(err, errors.ErrValidation), "illegal rest: %v", err)

	_, err = svc.ResolveRawLabel(ctx, "")
	assert.True(t, errors.Is(err, errors.ErrValidation), "empty: %v", err)
}

func TestCreateTagTypeValidation(t *testing.T) {
	s := newTestStore(t)
	svc := NewTagService(s, testLogger())
	ctx := context.Background()

	// Grammar characters cannot be type symbols.
	for _, symbol := range []string{"-", "+", "(", ":", "a"} {
		err := svc.CreateTagType(ctx, &domain.TagType{Label: "bad", Symbol: symbol})
		assert.True(t, errors.Is(err, errors.ErrValidation), "symbol %q: %v", symbol, err)
	}

	require.NoError(t, svc.CreateTagType(ctx, &domain.TagType{Label: "place", Symbol: "#", Color: 0x00FF00}))
	types, err := svc.ListTagTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "#", types[0].Symbol)
}

func TestCreateCompoundTagChecksDefinition(t *testing.T) {
	s := newTestStore(t)
	svc := NewTagService(s, testLogger())
	ctx := context.Background()

	err := svc.CreateCompoundTag(ctx, &domain.CompoundTag{
		Tag:        domain.Tag{Label: "broken"},
		Definition: "beach + ",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
	assert.True(t, query.IsQueryError(errors.Unwrap(err)), "cause should be the typed compiler error")

	require.NoError(t, svc.CreateCompoundTag(ctx, &domain.CompoundTag{
		Tag:        domain.Tag{Label: "coast"},
		Definition: "beach + cliff",
	}))
}

func TestCreateCompoundTagRejectsSelfReference(t *testing.T) {
	s := newTestStore(t)
	svc := NewTagService(s, testLogger())
	ctx := context.Background()

	err := svc.CreateCompoundTag(ctx, &domain.CompoundTag{
		Tag:        domain.Tag{Label: "loop"},
		Definition: "loop + beach",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
}

func TestUpdateCompoundTag(t *testing.T) {
	s := newTestStore(t)
	svc := NewTagService(s, testLogger())
	ctx := context.Background()

	ct := &domain.CompoundTag{Tag: domain.Tag{Label: "coast"}, Definition: "beach"}
	require.NoError(t, svc.CreateCompoundTag(ctx, ct))

	ct.Definition = "beach + cliff"
	require.NoError(t, svc.UpdateCompoundTag(ctx, ct))

	ct.Definition = "(((unbalanced"
	err := svc.UpdateCompoundTag(ctx, ct)
	assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
}
