package users

import (
	"time"

	"github.com/armazem-neca/armazem-api/internal/auth"
)

// Profile is the user view exposed on the account endpoints. What the
// query can see at all is already constrained by the RLS policies on
// the bound connection.
type Profile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Nickname          string    `json:"nickname,omitempty"`
	Email             string    `json:"email,omitempty"`
	Role              auth.Role `json:"role"`
	StateTaxIndicator int       `json:"state_tax_indicator"`
	CreditLimit       float64   `json:"credit_limit"`
	InvoiceAmount     float64   `json:"invoice_amount"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
