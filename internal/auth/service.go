package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/armazem-neca/armazem-api/internal/platform/db"
	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// Identifier kinds recognized at login.
const (
	identifierEmail = "email"
	identifierCPF   = "cpf"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	hasher *Hasher
	tokens *Tokens
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *Hasher, tokens *Tokens) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens}
}

// NormalizeIdentifier classifies the login identifier. Anything with
// an '@' is an email (trimmed, lowercased); otherwise the digits are
// extracted and only an exact 11-digit CPF is accepted. Everything
// else matches no credential at all.
func NormalizeIdentifier(identifier string) (kind, value string) {
	clean := strings.ToLower(strings.TrimSpace(identifier))
	if strings.Contains(clean, "@") {
		return identifierEmail, clean
	}
	var digits strings.Builder
	for _, r := range identifier {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 11 {
		return identifierCPF, digits.String()
	}
	return "", ""
}

// Login verifies credentials and issues a session. Unknown identifier
// and wrong password are deliberately indistinguishable. The CLIENTE
// profile is refused: this surface issues staff sessions only.
func (s *Service) Login(ctx context.Context, q db.Querier, identifier, password string) (*PublicUser, *Session, error) {
	user, err := s.lookup(ctx, q, identifier)
	if err != nil {
		return nil, nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, httpx.ErrInvalidCredentials
	}
	if user.Role == RoleCliente {
		return nil, nil, httpx.ErrForbidden
	}

	session, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, q, session.Refresh.ID, user.ID); err != nil {
		return nil, nil, err
	}
	return user.PublicView(), session, nil
}

// Refresh exchanges a valid, unrevoked refresh token for a fresh
// session. The role is re-read from storage and the old token row is
// rotated out.
func (s *Service) Refresh(ctx context.Context, q db.Querier, rawRefresh string) (*PublicUser, *Session, error) {
	userID, tokenID, ok := s.tokens.ExtractRefresh(rawRefresh)
	if !ok {
		return nil, nil, httpx.ErrUnauthorized
	}
	exists, err := s.repo.RefreshTokenExists(ctx, q, tokenID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, httpx.ErrUnauthorized
	}

	user, err := s.repo.FindActiveByID(ctx, q, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, nil, httpx.ErrUnauthorized
		}
		return nil, nil, err
	}

	session, err := s.tokens.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.DeleteRefreshToken(ctx, q, tokenID); err != nil {
		return nil, nil, err
	}
	if err := s.repo.CreateRefreshToken(ctx, q, session.Refresh.ID, user.ID); err != nil {
		return nil, nil, err
	}
	return user.PublicView(), session, nil
}

// Logout revokes the presented refresh token, if any. An absent or
// invalid token is not an error: logout must always succeed.
func (s *Service) Logout(ctx context.Context, q db.Querier, rawRefresh string) error {
	_, tokenID, ok := s.tokens.ExtractRefresh(rawRefresh)
	if !ok {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, q, tokenID)
}

func (s *Service) lookup(ctx context.Context, q db.Querier, identifier string) (*User, error) {
	kind, value := NormalizeIdentifier(identifier)

	var user *User
	var err error
	switch kind {
	case identifierEmail:
		user, err = s.repo.FindActiveByEmail(ctx, q, value)
	case identifierCPF:
		user, err = s.repo.FindActiveByCPF(ctx, q, value)
	default:
		return nil, httpx.ErrInvalidCredentials
	}
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}
