package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the cart session token. The session id doubles as the
// JWT subject and keys the shopper's cart.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
