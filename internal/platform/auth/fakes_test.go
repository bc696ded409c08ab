package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*Account
}

func newMemAccounts() *memAccounts { return &memAccounts{byID: map[string]*Account{}} }

func (m *memAccounts) GetByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) UpdateRole(_ context.Context, id, role string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return 0, nil
	}
	a.Role = role
	return 1, nil
}

type memRefresh struct {
	mu   sync.Mutex
	live map[string]string
}

func newMemRefresh() *memRefresh { return &memRefresh{live: map[string]string{}} }

func (m *memRefresh) Save(_ context.Context, jti, accountID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[jti] = accountID
	return nil
}

func (m *memRefresh) Consume(_ context.Context, jti string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.live[jti]
	if !ok {
		return "", ErrRefreshRevoked
	}
	delete(m.live, jti)
	return id, nil
}

func (m *memRefresh) Revoke(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, jti)
	return nil
}

var testSecret = []byte("test-secret-test-secret-test-secret")

func newTestService() (*Service, *memAccounts, *memRefresh) {
	accounts := newMemAccounts()
	refresh := newMemRefresh()
	svc := NewService(accounts, refresh, NewTokenIssuer(testSecret, time.Hour, 24*time.Hour))
	svc.cost = bcrypt.MinCost
	return svc, accounts, refresh
}
