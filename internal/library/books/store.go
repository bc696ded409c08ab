package books

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"scribe-backend/internal/library/availability"
	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/paging"
)

// Queries は Tx の内外どちらでも使えるクエリ群。
type Queries interface {
	Get(ctx context.Context, id string) (*Book, error)
	CategoryName(ctx context.Context, id string) (string, bool, error)
	LendingCounts(ctx context.Context, ids []string, now time.Time) (map[string]int, error)
}

type TxRepository interface {
	Queries
	// LockBook は行ロック付きで取得する。無ければ nil, nil
	LockBook(ctx context.Context, id string) (*Book, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
}

type Repository interface {
	Queries
	List(ctx context.Context, f Filter, p paging.Params) ([]Book, int64, error)
	Create(ctx context.Context, b *Book) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

type queries struct {
	q db.DBTX
	// Tx 内では貸出数をロック付きで数える
	locking bool
}

type Store struct {
	*queries
	conn *sqlx.DB
}

func NewStore(conn *sqlx.DB) *Store {
	return &Store{queries: &queries{q: conn}, conn: conn}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.RunInTx(ctx, s.conn, db.LockingTx(), func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &queries{q: tx, locking: true})
	})
}

const bookSelect = `
SELECT b.id, b.title, b.author, b.quantity, b.category_id, c.name AS category_name, b.archived, b.created_at
FROM books b
LEFT JOIN categories c ON c.id = b.category_id`

func (s *queries) List(ctx context.Context, f Filter, p paging.Params) ([]Book, int64, error) {
	where := strings.Builder{}
	where.WriteString(` WHERE 1=1`)
	args := []any{}
	if !f.IncludeArchived {
		where.WriteString(` AND b.archived = 0`)
	}
	if f.CategoryID != nil {
		where.WriteString(` AND b.category_id = ?`)
		args = append(args, *f.CategoryID)
	}

	var total int64
	if err := s.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM books b`+where.String(), args...); err != nil {
		return nil, 0, err
	}

	items := []Book{}
	q := bookSelect + where.String() + ` ORDER BY b.id ASC LIMIT ? OFFSET ?`
	if err := s.q.SelectContext(ctx, &items, q, append(args, p.Limit(), p.Offset())...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *queries) Get(ctx context.Context, id string) (*Book, error) {
	return s.getOne(ctx, bookSelect+` WHERE b.id = ?`, id)
}

func (s *queries) LockBook(ctx context.Context, id string) (*Book, error) {
	return s.getOne(ctx, bookSelect+` WHERE b.id = ? FOR UPDATE OF b`, id)
}

func (s *queries) getOne(ctx context.Context, q, id string) (*Book, error) {
	var b Book
	err := s.q.GetContext(ctx, &b, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *queries) CategoryName(ctx context.Context, id string) (string, bool, error) {
	var name string
	err := s.q.GetContext(ctx, &name, `SELECT name FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (s *queries) LendingCounts(ctx context.Context, ids []string, now time.Time) (map[string]int, error) {
	if s.locking {
		return availability.CountActiveLocked(ctx, s.q, ids, now)
	}
	return availability.CountActive(ctx, s.q, ids, now)
}

func (s *queries) Create(ctx context.Context, b *Book) error {
	const q = `
INSERT INTO books (id, title, author, quantity, category_id, archived, created_at)
VALUES (?, ?, ?, ?, ?, 0, ?)`
	_, err := s.q.ExecContext(ctx, q, b.ID, b.Title, b.Author, b.Quantity, b.CategoryID, b.CreatedAt)
	return err
}

func (s *queries) Update(ctx context.Context, b *Book) error {
	const q = `UPDATE books SET title = ?, author = ?, quantity = ?, category_id = ? WHERE id = ?`
	_, err := s.q.ExecContext(ctx, q, b.Title, b.Author, b.Quantity, b.CategoryID, b.ID)
	return err
}

func (s *queries) Delete(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	return err
}

func (s *queries) Archive(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE books SET archived = 1 WHERE id = ?`, id)
	return err
}
