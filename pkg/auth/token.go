package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amaiabotanic/storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrSessionMismatch marks a token whose sid and subject disagree.
var ErrSessionMismatch = errors.New("session id does not match subject")

// NewSessionID returns a fresh random cart session id.
func NewSessionID() string {
	return uuid.NewString()
}

// MintSessionToken signs a cart session token for sessionID. It returns the
// token and its expiry.
func MintSessionToken(cfg config.SessionConfig, now time.Time, sessionID string) (string, time.Time, error) {
	if cfg.Secret == "" {
		return "", time.Time{}, fmt.Errorf("session secret is required")
	}
	if cfg.Issuer == "" {
		return "", time.Time{}, fmt.Errorf("session issuer is required")
	}
	if cfg.TTL() <= 0 {
		return "", time.Time{}, fmt.Errorf("session ttl must be positive")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", time.Time{}, fmt.Errorf("session id is required")
	}

	expiresAt := now.Add(cfg.TTL())
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSessionToken validates tokenString and returns its claims.
func ParseSessionToken(cfg config.SessionConfig, tokenString string) (*SessionClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.SessionID != claims.Subject {
		return nil, ErrSessionMismatch
	}
	return claims, nil
}
