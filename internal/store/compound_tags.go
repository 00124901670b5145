package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
)

// ListCompoundTags returns all compound tags ordered by label.
func (s *Store) ListCompoundTags(ctx context.Context) ([]*domain.CompoundTag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, type_id, definition FROM compound_tags ORDER BY label ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.CompoundTag
	for rows.Next() {
		var (
			t      domain.CompoundTag
			typeID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Label, &typeID, &t.Definition); err != nil {
			return nil, err
		}
		t.TypeID = int64Ptr(typeID)
		tags = append(tags, &t)
	}
	if tags == nil {
		tags = []*domain.CompoundTag{}
	}
	return tags, rows.Err()
}

// CompoundTagDefinitions returns the label → definition mapping consumed by
// the query pipeline's macro expander.
func (s *Store) CompoundTagDefinitions(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, definition FROM compound_tags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make(map[string]string)
	for rows.Next() {
		var label, definition string
		if err := rows.Scan(&label, &definition); err != nil {
			return nil, err
		}
		defs[label] = definition
	}
	return defs, rows.Err()
}

// CreateCompoundTag inserts a compound tag. The label must not collide with
// a plain tag: the expander rewrites by label alone, so a collision would
// make the same word mean two things.
func (s *Store) CreateCompoundTag(ctx context.Context, t *domain.CompoundTag) error {
	var plain int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE label = ?`, t.Label).Scan(&plain); err != nil {
		return err
	}
	if plain > 0 {
		return errors.Conflict(fmt.Sprintf("a plain tag named %q already exists", t.Label))
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO compound_tags (label, type_id, definition) VALUES (?, ?, ?)`,
		t.Label, nullInt64(t.TypeID), t.Definition)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("compound tag %q already exists", t.Label))
		}
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// UpdateCompoundTag changes a compound tag's label, type, and definition.
func (s *Store) UpdateCompoundTag(ctx context.Context, t *domain.CompoundTag) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE compound_tags SET label = ?, type_id = ?, definition = ? WHERE id = ?`,
		t.Label, nullInt64(t.TypeID), t.Definition, t.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("compound tag %q already exists", t.Label))
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("compound tag %d not found", t.ID)
	}
	return nil
}

// DeleteCompoundTag removes a compound tag.
func (s *Store) DeleteCompoundTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM compound_tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("compound tag %d not found", id)
	}
	return nil
}
