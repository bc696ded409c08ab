package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"scribe-backend/internal/platform/db"
)

const (
	RoleAdministrator = "administrator"
	RoleUser          = "user"
)

type Account struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsDisabled   bool      `db:"is_disabled"`
	CreatedAt    time.Time `db:"created_at"`
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	UpdateRole(ctx context.Context, id, role string) (int64, error)
}

type Store struct{ db db.DBTX }

func NewStore(q db.DBTX) *Store { return &Store{db: q} }

const accountColumns = `id, email, password_hash, role, is_disabled, created_at`

// 見つからなければ nil, nil
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ? LIMIT 1`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ? LIMIT 1`, email)
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (*Account, error) {
	var a Account
	err := s.db.GetContext(ctx, &a, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO accounts (id, email, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.Email, a.PasswordHash, a.Role, a.IsDisabled, a.CreatedAt)
	return err
}

func (s *Store) UpdateRole(ctx context.Context, id, role string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
