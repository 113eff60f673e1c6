package validators

import (
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid session token")

// BearerToken strips an optional "Bearer " prefix and rejects blank input.
func BearerToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
