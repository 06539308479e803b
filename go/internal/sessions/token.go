package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes of randomness, hex encoded into a 64 character token.
const tokenBytes = 32

// GenerateToken returns a new unguessable session token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CookieName is the cookie, and websocket query parameter, carrying the token.
const CookieName = "sessionId"
