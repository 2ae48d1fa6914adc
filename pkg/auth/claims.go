package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role is the access tier carried inside the JWT.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Email string
	Role  Role
}

// AccessTokenClaims represents the typed JWT issued to clients. Subject holds
// the account email.
type AccessTokenClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
