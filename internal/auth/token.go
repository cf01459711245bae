package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// opaqueTokenBytes is 192 bits of entropy, above the 160-bit floor expected of
// refresh tokens.
const opaqueTokenBytes = 24

// GenerateOpaqueToken returns a cryptographically random, URL-safe token used
// as a refresh token. Unlike access tokens it carries no claims; its only
// meaning lives in the session store.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate opaque token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
