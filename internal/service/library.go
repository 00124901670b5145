package service

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/bbrks/go-blurhash"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/imagehash"
	"github.com/pictoria/pictoria-server/internal/store"
)

// LibraryService ingests image files into the catalogue and answers
// similarity lookups over stored fingerprints.
type LibraryService struct {
	store     *store.Store
	logger    *slog.Logger
	threshold int
}

// NewLibraryService creates a new library service. threshold is the Hamming
// distance at or below which an incoming file counts as a duplicate; zero
// selects the comparator default.
func NewLibraryService(store *store.Store, logger *slog.Logger, threshold int) *LibraryService {
	if threshold <= 0 {
		threshold = imagehash.DistanceThreshold
	}
	return &LibraryService{
		store:     store,
		logger:    logger,
		threshold: threshold,
	}
}

// Ingest catalogues the image at path with the given tags. Two duplicate
// gates run before insertion unless force is set: an exact file-name check,
// then a fingerprint gate that rejects files within the Hamming threshold of
// any catalogued image. A file that cannot be decoded is still catalogued,
// with no fingerprint.
func (s *LibraryService) Ingest(ctx context.Context, path string, tags []domain.Tag, force bool) (*domain.Image, error) {
	if !force {
		registered, err := s.store.PathRegistered(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("check path: %w", err)
		}
		if registered {
			return nil, errors.Duplicatef("an image named %q is already catalogued", path)
		}
	}

	hash, blurHash := s.fingerprint(path)

	if hash != nil && !force {
		match, err := s.nearestMatch(ctx, *hash, 0)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return nil, errors.Duplicatef(
				"image %q duplicates catalogued image %d (distance %d)",
				path, match.ID, match.Distance)
		}
	}

	img := &domain.Image{Path: path, Hash: hash, BlurHash: blurHash}
	if err := s.store.AddImage(ctx, img, tags); err != nil {
		return nil, err
	}
	s.logger.Info("image catalogued", "id", img.ID, "path", path, "fingerprinted", hash != nil)
	return img, nil
}

// GetImage retrieves a catalogued image.
func (s *LibraryService) GetImage(ctx context.Context, id int64) (*domain.Image, error) {
	return s.store.GetImage(ctx, id)
}

// ImageTags returns the tags assigned to an image.
func (s *LibraryService) ImageTags(ctx context.Context, id int64) ([]*domain.Tag, error) {
	if _, err := s.store.GetImage(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetImageTags(ctx, id)
}

// RetagImage replaces an image's tag assignments.
func (s *LibraryService) RetagImage(ctx context.Context, id int64, tags []domain.Tag) error {
	return s.store.UpdateImageTags(ctx, id, tags)
}

// DeleteImage removes an image from the catalogue. The file itself is left
// alone.
func (s *LibraryService) DeleteImage(ctx context.Context, id int64) error {
	return s.store.DeleteImage(ctx, id)
}

// ReplaceFile recomputes the stored fingerprint and blur hash after the file
// behind an image was replaced in place. This is the only recompute path;
// fingerprints are otherwise immutable.
func (s *LibraryService) ReplaceFile(ctx context.Context, id int64) (*domain.Image, error) {
	img, err := s.store.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	hash, blurHash := s.fingerprint(img.Path)
	if err := s.store.UpdateImageHash(ctx, id, hash, blurHash); err != nil {
		return nil, err
	}
	return s.store.GetImage(ctx, id)
}

// SimilarImages returns catalogued images within the duplicate threshold of
// the given image's fingerprint, nearest first. An image without a
// fingerprint has no neighbours.
func (s *LibraryService) SimilarImages(ctx context.Context, id int64) ([]domain.SimilarityResult, error) {
	img, err := s.store.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if img.Hash == nil {
		return nil, errors.Validationf("image %d has no fingerprint", id)
	}

	tree, err := s.loadIndex(ctx, id)
	if err != nil {
		return nil, err
	}

	results := []domain.SimilarityResult{}
	for _, match := range tree.Within(*img.Hash, s.threshold) {
		candidate, err := s.store.GetImage(ctx, match.ID)
		if err != nil {
			return nil, err
		}
		sim := imagehash.Compare(*img.Hash, match.Hash)
		results = append(results, domain.SimilarityResult{
			Image:       candidate,
			Distance:    sim.Distance,
			Confidence:  sim.Confidence,
			IsDuplicate: sim.Similar,
		})
	}
	return results, nil
}

// fingerprint decodes the file once and derives both the difference hash and
// the blur hash. Decode failures are logged and reported as an absent
// fingerprint, never as zero.
func (s *LibraryService) fingerprint(path string) (*uint64, string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("cannot open image", "path", path, "error", err)
		return nil, ""
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		s.logger.Warn("cannot decode image", "path", path, "error", err)
		return nil, ""
	}

	hash := imagehash.Hash(decoded)

	blurHash, err := blurhash.Encode(4, 3, decoded)
	if err != nil {
		s.logger.Warn("blurhash failed", "path", path, "error", err)
		blurHash = ""
	}
	return &hash, blurHash
}

// nearestMatch returns the closest catalogued fingerprint within the
// threshold, excluding the image with the given ID, or nil when none is.
func (s *LibraryService) nearestMatch(ctx context.Context, hash uint64, excludeID int64) (*imagehash.Match, error) {
	tree, err := s.loadIndex(ctx, excludeID)
	if err != nil {
		return nil, err
	}
	matches := tree.Within(hash, s.threshold)
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// loadIndex builds a BK-tree over every stored fingerprint except the given
// image's own.
func (s *LibraryService) loadIndex(ctx context.Context, excludeID int64) (*imagehash.BKTree, error) {
	fps, err := s.store.ListFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	tree := &imagehash.BKTree{}
	for _, fp := range fps {
		if fp.ImageID == excludeID {
			continue
		}
		tree.Insert(fp.Hash, fp.ImageID)
	}
	return tree, nil
}
