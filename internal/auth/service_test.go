package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

type memoryRepo struct {
	users    []*User
	refresh  map[string]string // token id -> user id
	inserted []string
}

func newMemoryRepo(users ...*User) *memoryRepo {
	return &memoryRepo{users: users, refresh: make(map[string]string)}
}

func (r *memoryRepo) FindActiveByEmail(ctx context.Context, q db.Querier, email string) (*User, error) {
	for _, u := range r.users {
		if u.IsActive && u.Email == email {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (r *memoryRepo) FindActiveByCPF(ctx context.Context, q db.Querier, cpf string) (*User, error) {
	for _, u := range r.users {
		if u.IsActive && u.CPF == cpf {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (r *memoryRepo) FindActiveByID(ctx context.Context, q db.Querier, id string) (*User, error) {
	for _, u := range r.users {
		if u.IsActive && u.ID == id {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (r *memoryRepo) CreateRefreshToken(ctx context.Context, q db.Querier, id, userID string) error {
	r.refresh[id] = userID
	r.inserted = append(r.inserted, id)
	return nil
}

func (r *memoryRepo) RefreshTokenExists(ctx context.Context, q db.Querier, id string) (bool, error) {
	_, ok := r.refresh[id]
	return ok, nil
}

func (r *memoryRepo) DeleteRefreshToken(ctx context.Context, q db.Querier, id string) error {
	delete(r.refresh, id)
	return nil
}

func (r *memoryRepo) DeleteRefreshTokensBefore(ctx context.Context, q db.Querier, cutoff time.Time) (int64, error) {
	return 0, nil
}

var _ Repository = (*memoryRepo)(nil)

func seedUser(t *testing.T, hasher *Hasher, role Role) *User {
	t.Helper()
	hash, err := hasher.Hash("senha-segura")
	require.NoError(t, err)
	return &User{
		ID:           "7b0d6d3e-8b0a-4f3d-9a6c-111111111111",
		Name:         "Maria Souza",
		Email:        "maria@armazem.com.br",
		CPF:          "48999999999",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	cases := []struct {
		in    string
		kind  string
		value string
	}{
		{"maria@armazem.com.br", "email", "maria@armazem.com.br"},
		{" Foo@Bar.com ", "email", "foo@bar.com"},
		{"48999999999", "cpf", "48999999999"},
		{"(48) 99999-9999", "cpf", "48999999999"},
		{"529.982.247-25", "cpf", "52998224725"},
		{"123456789", "", ""},
		{"1234567890123", "", ""},
		{"nem-email-nem-cpf", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		kind, value := NormalizeIdentifier(tc.in)
		require.Equal(t, tc.kind, kind, "identifier %q", tc.in)
		require.Equal(t, tc.value, value, "identifier %q", tc.in)
	}
}

func TestLoginSuccessByEmailAndCPF(t *testing.T) {
	hasher := NewHasher()
	user := seedUser(t, hasher, RoleGerente)
	repo := newMemoryRepo(user)
	svc := NewService(repo, hasher, newTestTokens())
	ctx := context.Background()

	for _, identifier := range []string{"Maria@Armazem.com.br", "(48) 99999-9999"} {
		view, session, err := svc.Login(ctx, nil, identifier, "senha-segura")
		require.NoError(t, err, "identifier %q", identifier)
		require.Equal(t, user.ID, view.ID)
		require.Equal(t, RoleGerente, view.Role)
		require.NotNil(t, session)
		require.Equal(t, user.ID, repo.refresh[session.Refresh.ID])
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	hasher := NewHasher()
	repo := newMemoryRepo(seedUser(t, hasher, RoleAdmin))
	svc := NewService(repo, hasher, newTestTokens())
	ctx := context.Background()

	_, _, wrongPassword := svc.Login(ctx, nil, "maria@armazem.com.br", "senha-errada")
	_, _, unknownUser := svc.Login(ctx, nil, "ninguem@armazem.com.br", "senha-segura")
	_, _, badIdentifier := svc.Login(ctx, nil, "123456789", "senha-segura")

	require.ErrorIs(t, wrongPassword, httpx.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, httpx.ErrInvalidCredentials)
	require.ErrorIs(t, badIdentifier, httpx.ErrInvalidCredentials)
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
	require.Empty(t, repo.inserted)
}

func TestLoginRejectsClienteRole(t *testing.T) {
	hasher := NewHasher()
	repo := newMemoryRepo(seedUser(t, hasher, RoleCliente))
	svc := NewService(repo, hasher, newTestTokens())

	_, _, err := svc.Login(context.Background(), nil, "maria@armazem.com.br", "senha-segura")
	require.ErrorIs(t, err, httpx.ErrForbidden)
	require.Empty(t, repo.inserted)
}

func TestConcurrentLoginsKeepIndependentSessions(t *testing.T) {
	hasher := NewHasher()
	repo := newMemoryRepo(seedUser(t, hasher, RoleCaixa))
	svc := NewService(repo, hasher, newTestTokens())
	ctx := context.Background()

	_, first, err := svc.Login(ctx, nil, "maria@armazem.com.br", "senha-segura")
	require.NoError(t, err)
	_, second, err := svc.Login(ctx, nil, "maria@armazem.com.br", "senha-segura")
	require.NoError(t, err)

	require.NotEqual(t, first.Refresh.ID, second.Refresh.ID)
	require.Len(t, repo.inserted, 2)
	require.Len(t, repo.refresh, 2)
}

func TestRefreshRotatesToken(t *testing.T) {
	hasher := NewHasher()
	user := seedUser(t, hasher, RoleContador)
	repo := newMemoryRepo(user)
	tokens := newTestTokens()
	svc := NewService(repo, hasher, tokens)
	ctx := context.Background()

	_, session, err := svc.Login(ctx, nil, "maria@armazem.com.br", "senha-segura")
	require.NoError(t, err)

	view, renewed, err := svc.Refresh(ctx, nil, session.Refresh.Value)
	require.NoError(t, err)
	require.Equal(t, user.ID, view.ID)
	require.Equal(t, RoleContador, view.Role)
	require.NotEqual(t, session.Refresh.ID, renewed.Refresh.ID)

	_, oldStillThere := repo.refresh[session.Refresh.ID]
	require.False(t, oldStillThere)
	require.Equal(t, user.ID, repo.refresh[renewed.Refresh.ID])

	// The rotated-out token is revoked for good.
	_, _, err = svc.Refresh(ctx, nil, session.Refresh.Value)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestRefreshRejectsForeignAndRevokedTokens(t *testing.T) {
	hasher := NewHasher()
	user := seedUser(t, hasher, RoleEstoquista)
	repo := newMemoryRepo(user)
	tokens := newTestTokens()
	svc := NewService(repo, hasher, tokens)
	ctx := context.Background()

	// An access token is not a refresh token.
	access, err := tokens.IssueAccess(user.ID, user.Role)
	require.NoError(t, err)
	_, _, err = svc.Refresh(ctx, nil, access.Value)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	// A signed refresh token with no persisted row was revoked.
	orphan, err := tokens.IssueRefresh(user.ID)
	require.NoError(t, err)
	_, _, err = svc.Refresh(ctx, nil, orphan.Value)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	hasher := NewHasher()
	repo := newMemoryRepo(seedUser(t, hasher, RoleAdmin))
	svc := NewService(repo, hasher, newTestTokens())
	ctx := context.Background()

	_, session, err := svc.Login(ctx, nil, "maria@armazem.com.br", "senha-segura")
	require.NoError(t, err)
	require.Len(t, repo.refresh, 1)

	require.NoError(t, svc.Logout(ctx, nil, session.Refresh.Value))
	require.Empty(t, repo.refresh)

	// Garbage tokens are ignored, logout always succeeds.
	require.NoError(t, svc.Logout(ctx, nil, "not-a-token"))
}
