package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"scribe-backend/internal/platform/db"
	"scribe-backend/internal/platform/ident"
	"scribe-backend/internal/platform/problem"
)

var (
	ErrInvalidCredentials = problem.Unauthorized("Invalid email or password.")
	ErrAccountDisabled    = problem.Forbidden("Account is disabled.")
	ErrInvalidRefresh     = problem.Unauthorized("Refresh token is invalid or has been revoked.")
)

type Service struct {
	store   AccountStore
	refresh RefreshStore
	tokens  *TokenIssuer
	clock   ident.Clock
	id      ident.IDGen
	cost    int
}

func NewService(store AccountStore, refresh RefreshStore, tokens *TokenIssuer) *Service {
	return &Service{
		store:   store,
		refresh: refresh,
		tokens:  tokens,
		clock:   ident.SystemClock{},
		id:      ident.ULIDGen{},
		cost:    bcrypt.DefaultCost,
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Service) Register(ctx context.Context, email, password string) (*Account, error) {
	return s.create(ctx, email, password, RoleUser)
}

func (s *Service) create(ctx context.Context, email, password, role string) (*Account, error) {
	email = normalizeEmail(email)
	exists, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, problem.Conflictf("Account with email %s already exists.", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	a := &Account{
		ID:           s.id.NewULID(now),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		// 同時登録で一意制約に当たった場合
		if db.IsDuplicateKey(err) {
			return nil, problem.Conflictf("Account with email %s already exists.", email)
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	acct, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return TokenPair{}, err
	}
	if acct == nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if acct.IsDisabled {
		return TokenPair{}, ErrAccountDisabled
	}
	return s.issue(ctx, acct)
}

// Refresh はリフレッシュトークンを 1 回限りで消費し、新しいペアを返す。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	owner, err := s.refresh.Consume(ctx, claims.ID)
	if errors.Is(err, ErrRefreshRevoked) {
		return TokenPair{}, ErrInvalidRefresh
	}
	if err != nil {
		return TokenPair{}, err
	}
	if owner != claims.Subject {
		return TokenPair{}, ErrInvalidRefresh
	}

	acct, err := s.store.GetByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	if acct == nil {
		return TokenPair{}, ErrInvalidRefresh
	}
	if acct.IsDisabled {
		return TokenPair{}, ErrAccountDisabled
	}
	return s.issue(ctx, acct)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return ErrInvalidRefresh
	}
	return s.refresh.Revoke(ctx, claims.ID)
}

func (s *Service) issue(ctx context.Context, acct *Account) (TokenPair, error) {
	pair, err := s.tokens.Issue(acct)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.refresh.Save(ctx, pair.RefreshID, acct.ID, pair.RefreshTTL); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, problem.ItemNotFound(id)
	}
	return acct, nil
}

func (s *Service) ChangeRole(ctx context.Context, id, role string) (*Account, error) {
	if role != RoleAdministrator && role != RoleUser {
		return nil, problem.Invalidf("Role must be %q or %q.", RoleAdministrator, RoleUser)
	}
	acct, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct.Role == role {
		return acct, nil
	}
	if _, err := s.store.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	acct.Role = role
	return acct, nil
}

// EnsureAdministrator は起動時に管理者アカウントを用意する。既に居れば何もしない。
func (s *Service) EnsureAdministrator(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	exists, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	if exists != nil {
		return false, nil
	}
	if _, err := s.create(ctx, email, password, RoleAdministrator); err != nil {
		return false, err
	}
	return true, nil
}
