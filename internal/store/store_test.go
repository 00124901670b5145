package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/query"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "library.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAddImage(t *testing.T, s *Store, path string, hash *uint64, labels ...string) *domain.Image {
	t.Helper()
	img := &domain.Image{Path: path, Hash: hash}
	tags := make([]domain.Tag, len(labels))
	for i, label := range labels {
		tags[i] = domain.Tag{Label: label}
	}
	if err := s.AddImage(context.Background(), img, tags); err != nil {
		t.Fatalf("add image %q: %v", path, err)
	}
	return img
}

func uint64Ptr(v uint64) *uint64 { return &v }

func TestAddAndGetImage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustAddImage(t, s, "/library/beach/sunset.jpg", uint64Ptr(0xDEADBEEFCAFE1234), "beach", "sunset")
	if img.ID == 0 {
		t.Fatal("AddImage did not set ID")
	}

	got, err := s.GetImage(ctx, img.ID)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if got.Path != img.Path {
		t.Errorf("path = %q, want %q", got.Path, img.Path)
	}
	if got.Hash == nil || *got.Hash != 0xDEADBEEFCAFE1234 {
		t.Errorf("hash = %v, want 0xDEADBEEFCAFE1234", got.Hash)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not persisted")
	}

	tags, err := s.GetImageTags(ctx, img.ID)
	if err != nil {
		t.Fatalf("get image tags: %v", err)
	}
	if len(tags) != 2 || tags[0].Label != "beach" || tags[1].Label != "sunset" {
		t.Errorf("tags = %v, want [beach sunset]", tags)
	}
}

func TestAddImageNilHash(t *testing.T) {
	s := newTestStore(t)

	img := mustAddImage(t, s, "/library/broken.png", nil)
	got, err := s.GetImage(context.Background(), img.ID)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if got.Hash != nil {
		t.Errorf("hash = %v, want nil", got.Hash)
	}

	fps, err := s.ListFingerprints(context.Background())
	if err != nil {
		t.Fatalf("list fingerprints: %v", err)
	}
	if len(fps) != 0 {
		t.Errorf("fingerprints = %v, want none for a nil hash", fps)
	}
}

func TestAddImageDuplicatePath(t *testing.T) {
	s := newTestStore(t)

	mustAddImage(t, s, "/library/a.jpg", nil)
	err := s.AddImage(context.Background(), &domain.Image{Path: "/library/a.jpg"}, nil)
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGetImageNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetImage(context.Background(), 42)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchImages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAddImage(t, s, "/library/b.jpg", nil, "beach")
	mustAddImage(t, s, "/library/bm.jpg", nil, "beach", "mountain")
	mustAddImage(t, s, "/library/m.png", nil, "mountain")

	pipeline := &query.Pipeline{}
	run := func(t *testing.T, raw string, want ...string) {
		t.Helper()
		compiled, err := pipeline.Compile(raw)
		if err != nil {
			t.Fatalf("compile %q: %v", raw, err)
		}
		images, err := s.SearchImages(ctx, compiled)
		if err != nil {
			t.Fatalf("search %q: %v", raw, err)
		}
		var paths []string
		for _, img := range images {
			paths = append(paths, img.Path)
		}
		if len(paths) != len(want) {
			t.Fatalf("search %q = %v, want %v", raw, paths, want)
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Fatalf("search %q = %v, want %v", raw, paths, want)
			}
		}
	}

	run(t, "beach", "/library/b.jpg", "/library/bm.jpg")
	run(t, "beach mountain", "/library/bm.jpg")
	run(t, "beach + mountain", "/library/b.jpg", "/library/bm.jpg", "/library/m.png")
	run(t, "beach -mountain", "/library/b.jpg")
	run(t, "-beach", "/library/m.png")
	run(t, `ext:plain:jpg`, "/library/b.jpg", "/library/bm.jpg")
	run(t, `beach ext:plain:png`)
	run(t, `name:regex:"^/library/b.*"`, "/library/b.jpg", "/library/bm.jpg")
}

func TestSearchImagesEmptyCompilation(t *testing.T) {
	s := newTestStore(t)
	mustAddImage(t, s, "/library/a.jpg", nil, "beach")

	pipeline := &query.Pipeline{}
	compiled, err := pipeline.Compile("beach -beach")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !compiled.Empty {
		t.Fatalf("contradiction compiled to SQL %q, want empty", compiled.SQL)
	}
	images, err := s.SearchImages(context.Background(), compiled)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("images = %v, want none", images)
	}
}

func TestListUntaggedImages(t *testing.T) {
	s := newTestStore(t)

	mustAddImage(t, s, "/library/tagged.jpg", nil, "beach")
	untagged := mustAddImage(t, s, "/library/plain.jpg", nil)

	images, err := s.ListUntaggedImages(context.Background())
	if err != nil {
		t.Fatalf("list untagged: %v", err)
	}
	if len(images) != 1 || images[0].ID != untagged.ID {
		t.Fatalf("untagged = %v, want only image %d", images, untagged.ID)
	}
}

func TestListFingerprints(t *testing.T) {
	s := newTestStore(t)

	a := mustAddImage(t, s, "/library/a.jpg", uint64Ptr(1))
	mustAddImage(t, s, "/library/b.jpg", nil)
	c := mustAddImage(t, s, "/library/c.jpg", uint64Ptr(0xFFFFFFFFFFFFFFFF))

	fps, err := s.ListFingerprints(context.Background())
	if err != nil {
		t.Fatalf("list fingerprints: %v", err)
	}
	if len(fps) != 2 {
		t.Fatalf("fingerprints = %v, want 2", fps)
	}
	if fps[0].ImageID != a.ID || fps[0].Hash != 1 {
		t.Errorf("fps[0] = %+v, want image %d hash 1", fps[0], a.ID)
	}
	if fps[1].ImageID != c.ID || fps[1].Hash != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("fps[1] = %+v, want image %d hash max", fps[1], c.ID)
	}
}

func TestPathRegistered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAddImage(t, s, "/library/holiday/beach.jpg", nil)

	registered, err := s.PathRegistered(ctx, "/other/place/beach.jpg")
	if err != nil {
		t.Fatalf("path registered: %v", err)
	}
	if !registered {
		t.Error("same file name under another directory should count as registered")
	}

	registered, err = s.PathRegistered(ctx, "/library/holiday/each.jpg")
	if err != nil {
		t.Fatalf("path registered: %v", err)
	}
	if registered {
		t.Error("suffix of another file name must not count as registered")
	}
}

func TestUpdateImageTagsReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustAddImage(t, s, "/library/a.jpg", nil, "beach", "sunset")
	err := s.UpdateImageTags(ctx, img.ID, []domain.Tag{{Label: "mountain"}})
	if err != nil {
		t.Fatalf("update tags: %v", err)
	}

	tags, err := s.GetImageTags(ctx, img.ID)
	if err != nil {
		t.Fatalf("get tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Label != "mountain" {
		t.Fatalf("tags = %v, want [mountain]", tags)
	}
}

func TestUpdateImageHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustAddImage(t, s, "/library/a.jpg", uint64Ptr(7))
	if err := s.UpdateImageHash(ctx, img.ID, uint64Ptr(9), "LKO2?U%2Tw=w"); err != nil {
		t.Fatalf("update hash: %v", err)
	}

	got, err := s.GetImage(ctx, img.ID)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if got.Hash == nil || *got.Hash != 9 {
		t.Errorf("hash = %v, want 9", got.Hash)
	}
	if got.BlurHash != "LKO2?U%2Tw=w" {
		t.Errorf("blur hash = %q", got.BlurHash)
	}
}

func TestDeleteImageCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := mustAddImage(t, s, "/library/a.jpg", nil, "beach")
	if err := s.DeleteImage(ctx, img.ID); err != nil {
		t.Fatalf("delete image: %v", err)
	}
	if _, err := s.GetImage(ctx, img.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("get after delete: %v, want ErrNotFound", err)
	}

	counts, err := s.ListTagsWithCounts(ctx)
	if err != nil {
		t.Fatalf("list counts: %v", err)
	}
	if len(counts) != 1 || counts[0].Count != 0 {
		t.Fatalf("counts = %v, want beach with count 0", counts)
	}
}

func TestTagLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAddImage(t, s, "/library/a.jpg", nil, "beach")

	tag, err := s.GetTagByLabel(ctx, "beach")
	if err != nil {
		t.Fatalf("get tag: %v", err)
	}

	typ := &domain.TagType{Label: "place", Symbol: "@", Color: 0x336699}
	if err := s.CreateTagType(ctx, typ); err != nil {
		t.Fatalf("create tag type: %v", err)
	}

	tag.Label = "seaside"
	tag.TypeID = &typ.ID
	if err := s.UpdateTag(ctx, tag); err != nil {
		t.Fatalf("update tag: %v", err)
	}

	got, err := s.GetTagByLabel(ctx, "seaside")
	if err != nil {
		t.Fatalf("get renamed tag: %v", err)
	}
	if got.TypeID == nil || *got.TypeID != typ.ID {
		t.Errorf("type id = %v, want %d", got.TypeID, typ.ID)
	}

	if err := s.DeleteTag(ctx, got.ID); err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	if _, err := s.GetTagByLabel(ctx, "seaside"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("get after delete: %v, want ErrNotFound", err)
	}
}

func TestTagTypeSymbolUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateTagType(ctx, &domain.TagType{Label: "place", Symbol: "@"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.CreateTagType(ctx, &domain.TagType{Label: "person", Symbol: "@"})
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}

	typ, err := s.GetTagTypeBySymbol(ctx, "@")
	if err != nil {
		t.Fatalf("get by symbol: %v", err)
	}
	if typ.Label != "place" {
		t.Errorf("label = %q, want place", typ.Label)
	}
}

func TestCompoundTagLabelCollisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustAddImage(t, s, "/library/a.jpg", nil, "beach")

	// A compound tag cannot shadow a plain tag.
	err := s.CreateCompoundTag(ctx, &domain.CompoundTag{
		Tag:        domain.Tag{Label: "beach"},
		Definition: "sand + sea",
	})
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	ct := &domain.CompoundTag{
		Tag:        domain.Tag{Label: "coast"},
		Definition: "beach + cliff",
	}
	if err := s.CreateCompoundTag(ctx, ct); err != nil {
		t.Fatalf("create compound tag: %v", err)
	}

	// A compound tag cannot be attached to an image as a plain tag.
	img := &domain.Image{Path: "/library/b.jpg"}
	err = s.AddImage(ctx, img, []domain.Tag{{Label: "coast"}})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCompoundTagDefinitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for label, def := range map[string]string{
		"coast":   "beach + cliff",
		"holiday": "coast sunny",
	} {
		err := s.CreateCompoundTag(ctx, &domain.CompoundTag{
			Tag:        domain.Tag{Label: label},
			Definition: def,
		})
		if err != nil {
			t.Fatalf("create %q: %v", label, err)
		}
	}

	defs, err := s.CompoundTagDefinitions(ctx)
	if err != nil {
		t.Fatalf("definitions: %v", err)
	}
	if len(defs) != 2 || defs["coast"] != "beach + cliff" || defs["holiday"] != "coast sunny" {
		t.Fatalf("definitions = %v", defs)
	}
}
