package domain

import "time"

// Role es el rol de autorización de una cuenta.
type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid indica si el rol pertenece al conjunto fijo.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleCustomer:
		return true
	}
	return false
}

type Address struct {
	Line1    string `json:"line1"`
	Landmark string `json:"landmark,omitempty"`
	Pincode  string `json:"pincode"`
}

// Account es la única entidad que posee el núcleo de credenciales.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Mobile        string    `json:"mobileNumber"`
	Address       Address   `json:"address"`
	Role          Role      `json:"role"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"isEmailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	EmailVerificationTokenHash string     `json:"-"`
	EmailVerificationExpiresAt *time.Time `json:"-"`
	PasswordResetTokenHash     string     `json:"-"`
	PasswordResetExpiresAt     *time.Time `json:"-"`
	RefreshTokenHash           string     `json:"-"`
}

// HasSession indica si la cuenta tiene un refresh token activo.
func (a Account) HasSession() bool {
	return a.RefreshTokenHash != ""
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
