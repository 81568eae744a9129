package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewState returns a 256-bit random CSRF state for the authorization
// redirect.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
