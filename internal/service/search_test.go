package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/store"
)

func seedImage(t *testing.T, s *store.Store, path string, labels ...string) *domain.Image {
	t.Helper()
	img := &domain.Image{Path: path}
	tags := make([]domain.Tag, len(labels))
	for i, label := range labels {
		tags[i] = domain.Tag{Label: label}
	}
	require.NoError(t, s.AddImage(context.Background(), img, tags))
	return img
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	svc := NewSearchService(s, testLogger())
	ctx := context.Background()

	seedImage(t, s, "/library/b.jpg", "beach")
	seedImage(t, s, "/library/bm.jpg", "beach", "mountain")
	seedImage(t, s, "/library/m.jpg", "mountain")

	images, err := svc.Search(ctx, "beach -mountain")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "/library/b.jpg", images[0].Path)
}

func TestSearchExpandsCompoundTags(t *testing.T) {
	s := newTestStore(t)
	svc := NewSearchService(s, testLogger())
	tagSvc := NewTagService(s, testLogger())
	ctx := context.Background()

	seedImage(t, s, "/library/b.jpg", "beach")
	seedImage(t, s, "/library/c.jpg", "cliff")
	seedImage(t, s, "/library/m.jpg", "mountain")

	require.NoError(t, tagSvc.CreateCompoundTag(ctx, &domain.CompoundTag{
		Tag:        domain.Tag{Label: "coast"},
		Definition: "beach + cliff",
	}))

	images, err := svc.Search(ctx, "coast")
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "/library/b.jpg", images[0].Path)
	assert.Equal(t, "/library/c.jpg", images[1].Path)
}

func TestSearchMalformedQuery(t *testing.T) {
	s := newTestStore(t)
	svc := NewSearchService(s, testLogger())
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "beach +", "(beach", "ext:weird:jpg", "size:plain:big"} {
		_, err := svc.Search(ctx, raw)
		assert.True(t, errors.Is(err, errors.ErrValidation), "query %q: %v", raw, err)
	}
}

func TestUntagged(t *testing.T) {
	s := newTestStore(t)
	svc := NewSearchService(s, testLogger())
	ctx := context.Background()

	seedImage(t, s, "/library/tagged.jpg", "beach")
	plain := seedImage(t, s, "/library/plain.jpg")

	images, err := svc.Untagged(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, plain.ID, images[0].ID)
}

func TestCompileSQL(t *testing.T) {
	s := newTestStore(t)
	svc := NewSearchService(s, testLogger())
	ctx := context.Background()

	compiled, err := svc.CompileSQL(ctx, "beach -beach")
	require.NoError(t, err)
	assert.True(t, compiled.Empty)

	compiled, err = svc.CompileSQL(ctx, "beach mountain")
	require.NoError(t, err)
	assert.Contains(t, compiled.SQL, "INTERSECT")
	assert.Equal(t, []any{"beach", "mountain"}, compiled.Args)
}
