package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Token type claims.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig is the process-wide signing state. It is loaded once at
// startup and never mutated afterwards; rotating the secret invalidates
// every outstanding token.
type TokenConfig struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Tokens issues and verifies the access/refresh JWT pair.
type Tokens struct {
	cfg    TokenConfig
	method jwt.SigningMethod
}

// NewTokens constructs a Tokens instance. Unknown algorithm identifiers
// fall back to HS256.
func NewTokens(cfg TokenConfig) *Tokens {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "HS256"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 3 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 15 * 24 * time.Hour
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		cfg.Algorithm = "HS256"
		method = jwt.SigningMethodHS256
	}
	return &Tokens{cfg: cfg, method: method}
}

// IssueAccess signs a short-lived access token carrying the role claim.
func (t *Tokens) IssueAccess(userID string, role Role) (Token, error) {
	expiresAt := NowTimeFunc().UTC().Add(t.cfg.AccessTTL)
	tokenID := uuid.New().String()
	claims := jwt.MapClaims{
		"sub":  userID,
		"exp":  jwt.NewNumericDate(expiresAt),
		"jti":  tokenID,
		"role": string(role),
		"type": tokenTypeAccess,
	}
	return t.sign(tokenID, claims, expiresAt)
}

// IssueRefresh signs a long-lived refresh token. It deliberately omits
// the role claim: role is re-resolved from storage when the token is
// used, never trusted from the refresh payload.
func (t *Tokens) IssueRefresh(userID string) (Token, error) {
	expiresAt := NowTimeFunc().UTC().Add(t.cfg.RefreshTTL)
	tokenID := uuid.New().String()
	claims := jwt.MapClaims{
		"sub":  userID,
		"exp":  jwt.NewNumericDate(expiresAt),
		"jti":  tokenID,
		"type": tokenTypeRefresh,
	}
	return t.sign(tokenID, claims, expiresAt)
}

// IssueSession composes the access/refresh pair. Persistence of the
// refresh id is the caller's job.
func (t *Tokens) IssueSession(userID string, role Role) (*Session, error) {
	access, err := t.IssueAccess(userID, role)
	if err != nil {
		return nil, err
	}
	refresh, err := t.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &Session{Access: access, Refresh: refresh}, nil
}

func (t *Tokens) sign(tokenID string, claims jwt.MapClaims, expiresAt time.Time) (Token, error) {
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{ID: tokenID, Value: signed, ExpiresAt: expiresAt}, nil
}

// Extract validates an access token and returns its principal. Absent,
// expired, tampered or mistyped tokens all yield nil: the caller
// decides whether anonymous access is acceptable.
func (t *Tokens) Extract(raw string) *Principal {
	if raw == "" {
		return nil
	}
	claims := t.parse(raw)
	if claims == nil {
		return nil
	}
	if typ, _ := claims["type"].(string); typ != tokenTypeAccess {
		return nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	role, _ := claims["role"].(string)
	return &Principal{UserID: sub, Role: ParseRole(role)}
}

// ExtractRefresh validates a refresh token and returns its subject and
// unique id. It degrades to ok=false the same way Extract does.
func (t *Tokens) ExtractRefresh(raw string) (userID, tokenID string, ok bool) {
	if raw == "" {
		return "", "", false
	}
	claims := t.parse(raw)
	if claims == nil {
		return "", "", false
	}
	if typ, _ := claims["type"].(string); typ != tokenTypeRefresh {
		return "", "", false
	}
	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || jti == "" {
		return "", "", false
	}
	return sub, jti, true
}

func (t *Tokens) parse(raw string) jwt.MapClaims {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		return t.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{t.cfg.Algorithm}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return claims
}
