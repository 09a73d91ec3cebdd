package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// GenerateToken returns a URL-safe random token carrying 32 bytes of entropy.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NormalizeEmail lowercases and trims an email address for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
