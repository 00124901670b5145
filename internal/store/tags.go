package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
)

// TagCount pairs a tag with the number of images carrying it.
type TagCount struct {
	Tag   domain.Tag `json:"tag"`
	Count int        `json:"count"`
}

// ListTags returns all tags ordered by label.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, type_id FROM tags ORDER BY label ASC`)
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

// ListTagsWithCounts returns all tags with their image use counts, ordered
// by label.
func (s *Store) ListTagsWithCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, type_id,
		       (SELECT COUNT(image_id) FROM image_tags WHERE tag_id = tags.id) AS use_count
		FROM tags ORDER BY label ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var (
			tc     TagCount
			typeID sql.NullInt64
		)
		if err := rows.Scan(&tc.Tag.ID, &tc.Tag.Label, &typeID, &tc.Count); err != nil {
			return nil, err
		}
		tc.Tag.TypeID = int64Ptr(typeID)
		counts = append(counts, tc)
	}
	if counts == nil {
		counts = []TagCount{}
	}
	return counts, rows.Err()
}

// GetTagByLabel retrieves a tag by its label.
func (s *Store) GetTagByLabel(ctx context.Context, label string) (*domain.Tag, error) {
	var (
		t      domain.Tag
		typeID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, type_id FROM tags WHERE label = ?`, label).
		Scan(&t.ID, &t.Label, &typeID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("tag %q not found", label)
	}
	if err != nil {
		return nil, err
	}
	t.TypeID = int64Ptr(typeID)
	return &t, nil
}

// UpdateTag changes a tag's label and type.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tags SET label = ?, type_id = ? WHERE id = ?`,
		t.Label, nullInt64(t.TypeID), t.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("tag %q already exists", t.Label))
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("tag %d not found", t.ID)
	}
	return nil
}

// DeleteTag removes a tag; its image links cascade.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("tag %d not found", id)
	}
	return nil
}

// upsertTagTx finds a tag by label or creates it, returning its ID. A label
// that names a compound tag is rejected: compound tags cannot be attached to
// images.
func upsertTagTx(ctx context.Context, tx *sql.Tx, label string, typeID *int64) (int64, error) {
	if !domain.ValidTagLabel(label) {
		return 0, errors.Validationf("illegal tag label %q", label)
	}

	var compound int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM compound_tags WHERE label = ?`, label).Scan(&compound); err != nil {
		return 0, err
	}
	if compound > 0 {
		return 0, errors.Validationf("compound tag %q cannot be attached to an image", label)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE label = ?`, label).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tags (label, type_id) VALUES (?, ?)`, label, nullInt64(typeID))
	if err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	return res.LastInsertId()
}
