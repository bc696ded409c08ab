package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe-backend/internal/platform/problem"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, refresh := newTestService()

	acct, err := svc.Register(ctx, "  Reader@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", acct.Email)
	assert.Equal(t, RoleUser, acct.Role)
	assert.NotEqual(t, "correct horse", acct.PasswordHash)

	pair, err := svc.Login(ctx, "reader@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Contains(t, refresh.live, pair.RefreshID)

	claims, err := svc.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, claims.Subject)
	assert.Equal(t, RoleUser, claims.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Register(ctx, "dup@example.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "DUP@example.com", "password2")

	assert.Equal(t, 409, problem.ToHTTPStatus(err))
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	svc, accounts, _ := newTestService()
	acct, err := svc.Register(ctx, "a@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	accounts.byID[acct.ID].IsDisabled = true
	_, err = svc.Login(ctx, "a@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefresh_RotatesAndIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, _, refresh := newTestService()
	_, err := svc.Register(ctx, "r@example.com", "password1")
	require.NoError(t, err)
	first, err := svc.Login(ctx, "r@example.com", "password1")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshID, second.RefreshID)
	assert.NotContains(t, refresh.live, first.RefreshID)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	// アクセストークンはリフレッシュに使えない
	_, err = svc.Refresh(ctx, second.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogout_RevokesRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	_, err := svc.Register(ctx, "l@example.com", "password1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "l@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	acct, err := svc.Register(ctx, "c@example.com", "password1")
	require.NoError(t, err)

	updated, err := svc.ChangeRole(ctx, acct.ID, RoleAdministrator)
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, updated.Role)

	_, err = svc.ChangeRole(ctx, acct.ID, "librarian")
	assert.Equal(t, 400, problem.ToHTTPStatus(err))

	_, err = svc.ChangeRole(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", RoleUser)
	assert.Equal(t, 404, problem.ToHTTPStatus(err))
}

func TestEnsureAdministrator(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	created, err := svc.EnsureAdministrator(ctx, "admin@example.com", "password1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdministrator(ctx, "admin@example.com", "password1")
	require.NoError(t, err)
	assert.False(t, created)

	pair, err := svc.Login(ctx, "admin@example.com", "password1")
	require.NoError(t, err)
	claims, err := svc.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, claims.Role)

	created, err = svc.EnsureAdministrator(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)
}
