package categories

import (
	"context"
	"database/sql"
	"errors"

	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/paging"
)

type Repository interface {
	List(ctx context.Context, p paging.Params) ([]Category, int64, error)
	// Get は見つからなければ nil, nil
	Get(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) (int64, error)
	CountBooks(ctx context.Context, id string) (int64, error)
}

type Store struct{ db db.DBTX }

func NewStore(q db.DBTX) *Store { return &Store{db: q} }

func (s *Store) List(ctx context.Context, p paging.Params) ([]Category, int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM categories`); err != nil {
		return nil, 0, err
	}
	items := []Category{}
	const q = `
SELECT id, name, slug, created_at
FROM categories
ORDER BY id ASC
LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &items, q, p.Limit(), p.Offset()); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c, `SELECT id, name, slug, created_at FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, c *Category) error {
	const q = `INSERT INTO categories (id, name, slug, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, c.ID, c.Name, c.Slug, c.CreatedAt)
	return err
}

func (s *Store) Update(ctx context.Context, c *Category) error {
	_, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ?, slug = ? WHERE id = ?`, c.Name, c.Slug, c.ID)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountBooks(ctx context.Context, id string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM books WHERE category_id = ?`, id)
	return n, err
}
