package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole is the role claim issued by the auth provider.
type UserRole string

const (
	RoleAuthenticated UserRole = "authenticated"
	RoleAdmin         UserRole = "admin"
)

// JWTClaims represents the payload of access tokens minted by the auth provider.
type JWTClaims struct {
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim, which carries the provider user id.
func (c *JWTClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
