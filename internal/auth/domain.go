package auth

import "time"

// Role is the closed set of profiles the system knows about.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleCaixa      Role = "CAIXA"
	RoleGerente    Role = "GERENTE"
	RoleCliente    Role = "CLIENTE"
	RoleEstoquista Role = "ESTOQUISTA"
	RoleContador   Role = "CONTADOR"
)

// ParseRole normalizes an arbitrary role string. Unknown values
// collapse to CLIENTE, the least privileged profile.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleCaixa, RoleGerente, RoleCliente, RoleEstoquista, RoleContador:
		return Role(s)
	default:
		return RoleCliente
	}
}

// Principal is the authenticated identity attached to a request. It is
// immutable for the request's lifetime.
type Principal struct {
	UserID string
	Role   Role
}

// User is the credential record as stored. The password hash never
// leaves this package.
type User struct {
	ID                string
	Name              string
	Nickname          string
	Email             string
	CPF               string
	PasswordHash      string
	Role              Role
	Notes             string
	StateTaxIndicator int
	CreditLimit       float64
	InvoiceAmount     float64
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the sanitized view returned to clients.
type PublicUser struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Nickname          string    `json:"nickname,omitempty"`
	Email             string    `json:"email,omitempty"`
	Role              Role      `json:"role"`
	Notes             string    `json:"notes,omitempty"`
	StateTaxIndicator int       `json:"state_tax_indicator"`
	CreditLimit       float64   `json:"credit_limit"`
	InvoiceAmount     float64   `json:"invoice_amount"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PublicView strips everything a client must never see.
func (u *User) PublicView() *PublicUser {
	return &PublicUser{
		ID:                u.ID,
		Name:              u.Name,
		Nickname:          u.Nickname,
		Email:             u.Email,
		Role:              u.Role,
		Notes:             u.Notes,
		StateTaxIndicator: u.StateTaxIndicator,
		CreditLimit:       u.CreditLimit,
		InvoiceAmount:     u.InvoiceAmount,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// Token is a signed credential plus the metadata needed to bind it to
// transport and persistence.
type Token struct {
	ID        string
	Value     string
	ExpiresAt time.Time
}

// Session pairs the short-lived access token with the long-lived
// refresh token issued at login.
type Session struct {
	Access  Token
	Refresh Token
}
