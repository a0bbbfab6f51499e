package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/armazem-neca/armazem-api/internal/auth"
	"github.com/armazem-neca/armazem-api/internal/observability"
	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
	_ "github.com/armazem-neca/armazem-api/testing"
)

type stubRepo struct {
	user    *auth.User
	refresh map[string]string
}

func newStubRepo(user *auth.User) *stubRepo {
	return &stubRepo{user: user, refresh: make(map[string]string)}
}

func (s *stubRepo) FindActiveByEmail(ctx context.Context, q db.Querier, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindActiveByCPF(ctx context.Context, q db.Querier, cpf string) (*auth.User, error) {
	if s.user == nil || s.user.CPF != cpf {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindActiveByID(ctx context.Context, q db.Querier, id string) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateRefreshToken(ctx context.Context, q db.Querier, id, userID string) error {
	s.refresh[id] = userID
	return nil
}

func (s *stubRepo) RefreshTokenExists(ctx context.Context, q db.Querier, id string) (bool, error) {
	_, ok := s.refresh[id]
	return ok, nil
}

func (s *stubRepo) DeleteRefreshToken(ctx context.Context, q db.Querier, id string) error {
	delete(s.refresh, id)
	return nil
}

func (s *stubRepo) DeleteRefreshTokensBefore(ctx context.Context, q db.Querier, cutoff time.Time) (int64, error) {
	return 0, nil
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthRouter(t *testing.T, repo auth.Repository, maxAttempts int) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens := auth.NewTokens(auth.TokenConfig{
		Secret:     []byte("handler-test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	service := auth.NewService(repo, auth.NewHasher(), tokens)
	lockout := auth.NewLockout(redisClient, slogDiscard(), maxAttempts, time.Minute)
	handler := auth.NewHandler(slogDiscard(), service, lockout, auth.NewCookieWriter(false), observability.NewMetrics())

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

func seedStaffUser(t *testing.T, role auth.Role) *auth.User {
	t.Helper()
	hash, err := auth.NewHasher().Hash("senha-segura")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           "9f2c7a40-0000-4000-8000-222222222222",
		Name:         "João Neca",
		Email:        "joao@armazem.com.br",
		CPF:          "52998224725",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
}

func postLogin(router http.Handler, identifier, password string) *httptest.ResponseRecorder {
	body := `{"identifier":"` + identifier + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLoginSetsSessionCookies(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(seedStaffUser(t, auth.RoleGerente)), 10)

	res := postLogin(router, "joao@armazem.com.br", "senha-segura")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	cookies := res.Result().Cookies()
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
		if !c.HttpOnly {
			t.Fatalf("cookie %s must be http-only", c.Name)
		}
	}
	if !names[auth.AccessTokenCookie] || !names[auth.RefreshTokenCookie] {
		t.Fatalf("expected both session cookies, got %v", names)
	}

	var view auth.PublicUser
	if err := json.Unmarshal(res.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if view.Role != auth.RoleGerente {
		t.Fatalf("expected role GERENTE, got %s", view.Role)
	}
	if strings.Contains(res.Body.String(), "password") {
		t.Fatalf("response must not leak password material")
	}
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(seedStaffUser(t, auth.RoleAdmin)), 10)

	wrongPassword := postLogin(router, "joao@armazem.com.br", "senha-errada")
	unknownUser := postLogin(router, "outro@armazem.com.br", "senha-segura")

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("failure responses must be indistinguishable:\n%s\n%s", wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestLoginRejectsClienteProfile(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(seedStaffUser(t, auth.RoleCliente)), 10)

	res := postLogin(router, "joao@armazem.com.br", "senha-segura")
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Cliente") {
		t.Fatalf("expected cliente rejection message, got %s", res.Body.String())
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(seedStaffUser(t, auth.RoleCaixa)), 2)

	postLogin(router, "joao@armazem.com.br", "senha-errada")
	postLogin(router, "joao@armazem.com.br", "senha-errada")

	res := postLogin(router, "joao@armazem.com.br", "senha-segura")
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after lockout, got %d", res.Code)
	}
}

func TestLoginValidatesPayload(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(nil), 10)

	res := postLogin(router, "", "")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubRepo(seedStaffUser(t, auth.RoleEstoquista))
	router := newAuthRouter(t, repo, 10)

	login := postLogin(router, "joao@armazem.com.br", "senha-segura")
	if login.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", login.Code)
	}
	var refreshCookie *http.Cookie
	for _, c := range login.Result().Cookies() {
		if c.Name == auth.RefreshTokenCookie {
			refreshCookie = c
		}
	}
	if refreshCookie == nil {
		t.Fatalf("refresh cookie missing")
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(refreshCookie)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(res.Result().Cookies()) != 2 {
		t.Fatalf("refresh must rebind both cookies")
	}

	// The presented token was rotated out; replaying it fails.
	replay := httptest.NewRecorder()
	replayReq := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	replayReq.AddCookie(refreshCookie)
	router.ServeHTTP(replay, replayReq)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: expected 401, got %d", replay.Code)
	}
}

func TestRefreshWithoutCookieIsUnauthorized(t *testing.T) {
	router := newAuthRouter(t, newStubRepo(nil), 10)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLogoutClearsCookiesAndRevokes(t *testing.T) {
	repo := newStubRepo(seedStaffUser(t, auth.RoleContador))
	router := newAuthRouter(t, repo, 10)

	login := postLogin(router, "joao@armazem.com.br", "senha-segura")
	var refreshCookie *http.Cookie
	for _, c := range login.Result().Cookies() {
		if c.Name == auth.RefreshTokenCookie {
			refreshCookie = c
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(refreshCookie)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(repo.refresh) != 0 {
		t.Fatalf("refresh token row must be revoked on logout")
	}
	for _, c := range res.Result().Cookies() {
		if c.Value != "" || c.MaxAge >= 0 {
			t.Fatalf("cookie %s must be deleted", c.Name)
		}
	}
}
