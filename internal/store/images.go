package store

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/query"
)

// imageColumns is the ordered column list selected by image queries. Must
// match the scan order in scanImage and the list compiled set queries
// select.
const imageColumns = `id, path, hash, blur_hash, created_at, updated_at`

// scanImage scans a row into a domain.Image.
func scanImage(scanner interface{ Scan(dest ...any) error }) (*domain.Image, error) {
	var (
		img       domain.Image
		hashBlob  []byte
		createdAt string
		updatedAt string
	)
	err := scanner.Scan(&img.ID, &img.Path, &hashBlob, &img.BlurHash, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if img.Hash, err = decodeHash(hashBlob); err != nil {
		return nil, err
	}
	if img.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if img.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

// AddImage inserts an image and links it to the given tags in one
// transaction, creating tags that do not exist yet. The image's ID is set on
// success. Returns ErrAlreadyExists when the path is already catalogued.
func (s *Store) AddImage(ctx context.Context, img *domain.Image, tags []domain.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	img.CreatedAt = now
	img.UpdatedAt = now

	res, err := tx.ExecContext(ctx, `
		INSERT INTO images (path, hash, blur_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		img.Path,
		encodeHash(img.Hash),
		img.BlurHash,
		formatTime(img.CreatedAt),
		formatTime(img.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("image %q is already catalogued", img.Path))
		}
		return err
	}
	if img.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	if err := s.linkTagsTx(ctx, tx, img.ID, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// GetImage retrieves an image by ID.
func (s *Store) GetImage(ctx context.Context, id int64) (*domain.Image, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = ?`, id)
	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("image %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// SearchImages executes a compiled set-algebra query. An empty compilation
// ("no query") yields zero rows without touching the database.
func (s *Store) SearchImages(ctx context.Context, compiled *query.Compiled) ([]*domain.Image, error) {
	if compiled.Empty {
		return []*domain.Image{}, nil
	}

	sql := `SELECT ` + imageColumns + ` FROM (` + compiled.SQL + `) ORDER BY path ASC`
	rows, err := s.db.QueryContext(ctx, sql, compiled.Args...)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer rows.Close()

	return collectImages(rows)
}

// ListUntaggedImages returns images with no tag assignments, ordered by
// path.
func (s *Store) ListUntaggedImages(ctx context.Context) ([]*domain.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+` FROM images
		WHERE id NOT IN (SELECT image_id FROM image_tags)
		ORDER BY path ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectImages(rows)
}

// Fingerprint pairs an image ID with its stored hash. Images whose hashing
// failed are excluded.
type Fingerprint struct {
	ImageID int64
	Hash    uint64
}

// ListFingerprints returns every stored fingerprint, ordered by image ID.
func (s *Store) ListFingerprints(ctx context.Context) ([]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hash FROM images WHERE hash IS NOT NULL ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []Fingerprint
	for rows.Next() {
		var (
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		hash, err := decodeHash(blob)
		if err != nil {
			return nil, err
		}
		fps = append(fps, Fingerprint{ImageID: id, Hash: *hash})
	}
	return fps, rows.Err()
}

// PathRegistered reports whether an image with the same file name (not the
// full path) is already catalogued, which blocks silent re-ingestion of a
// photo that merely moved.
func (s *Store) PathRegistered(ctx context.Context, imagePath string) (bool, error) {
	pattern := regexp.QuoteMeta("/"+path.Base(imagePath)) + "$"
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images WHERE path REGEXP ?`, pattern).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateImagePath changes an image's path.
func (s *Store) UpdateImagePath(ctx context.Context, id int64, newPath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET path = ?, updated_at = ? WHERE id = ?`,
		newPath, formatTime(time.Now().UTC()), id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("image %q is already catalogued", newPath))
		}
		return err
	}
	return requireRowAffected(res, id)
}

// UpdateImageHash replaces an image's fingerprint and blur hash, used when
// the file is replaced in place. A nil hash records that hashing failed.
func (s *Store) UpdateImageHash(ctx context.Context, id int64, hash *uint64, blurHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET hash = ?, blur_hash = ?, updated_at = ? WHERE id = ?`,
		encodeHash(hash), blurHash, formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, id)
}

// UpdateImageTags replaces an image's tag assignments in one transaction.
func (s *Store) UpdateImageTags(ctx context.Context, id int64, tags []domain.Tag) error {
	if _, err := s.GetImage(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE image_id = ?`, id); err != nil {
		return fmt.Errorf("delete image_tags: %w", err)
	}
	if err := s.linkTagsTx(ctx, tx, id, tags); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE images SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteImage removes an image; its tag links cascade.
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res, id)
}

// GetImageTags returns the tags assigned to an image, ordered by label.
func (s *Store) GetImageTags(ctx context.Context, id int64) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT T.id, T.label, T.type_id
		FROM tags AS T
		JOIN image_tags AS IT ON IT.tag_id = T.id
		WHERE IT.image_id = ?
		ORDER BY T.label ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		var (
			t      domain.Tag
			typeID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Label, &typeID); err != nil {
			return nil, err
		}
		t.TypeID = int64Ptr(typeID)
		tags = append(tags, &t)
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, rows.Err()
}

// linkTagsTx upserts each tag by label and links it to the image.
func (s *Store) linkTagsTx(ctx context.Context, tx *sql.Tx, imageID int64, tags []domain.Tag) error {
	for _, tag := range tags {
		tagID, err := upsertTagTx(ctx, tx, tag.Label, tag.TypeID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO image_tags (image_id, tag_id) VALUES (?, ?)`,
			imageID, tagID); err != nil {
			return fmt.Errorf("insert image_tag: %w", err)
		}
	}
	return nil
}

func collectImages(rows *sql.Rows) ([]*domain.Image, error) {
	var images []*domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if images == nil {
		images = []*domain.Image{}
	}
	return images, nil
}

func requireRowAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("image %d not found", id)
	}
	return nil
}
