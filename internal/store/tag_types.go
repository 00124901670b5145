package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
)

// ListTagTypes returns all tag types ordered by label.
func (s *Store) ListTagTypes(ctx context.Context) ([]*domain.TagType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, symbol, color FROM tag_types ORDER BY label ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*domain.TagType
	for rows.Next() {
		var t domain.TagType
		if err := rows.Scan(&t.ID, &t.Label, &t.Symbol, &t.Color); err != nil {
			return nil, err
		}
		types = append(types, &t)
	}
	if types == nil {
		types = []*domain.TagType{}
	}
	return types, rows.Err()
}

// GetTagTypeBySymbol retrieves the tag type with the given prefix symbol.
func (s *Store) GetTagTypeBySymbol(ctx context.Context, symbol string) (*domain.TagType, error) {
	var t domain.TagType
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, symbol, color FROM tag_types WHERE symbol = ?`, symbol).
		Scan(&t.ID, &t.Label, &t.Symbol, &t.Color)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no tag type with symbol %q", symbol)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTagType inserts a tag type. Labels and symbols are both unique.
func (s *Store) CreateTagType(ctx context.Context, t *domain.TagType) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tag_types (label, symbol, color) VALUES (?, ?, ?)`,
		t.Label, t.Symbol, t.Color)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("tag type %q / symbol %q already exists", t.Label, t.Symbol))
		}
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// UpdateTagType changes a tag type's label, symbol, and color.
func (s *Store) UpdateTagType(ctx context.Context, t *domain.TagType) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tag_types SET label = ?, symbol = ?, color = ? WHERE id = ?`,
		t.Label, t.Symbol, t.Color, t.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.AlreadyExists(fmt.Sprintf("tag type %q / symbol %q already exists", t.Label, t.Symbol))
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("tag type %d not found", t.ID)
	}
	return nil
}

// DeleteTagType removes a tag type; tags referencing it fall back to
// untyped.
func (s *Store) DeleteTagType(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tag_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("tag type %d not found", id)
	}
	return nil
}
