package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateRandomToken returns a URL-safe random string built from n bytes of
// entropy. Single-use tokens (email verification, password reset) use n >= 32.
func GenerateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token. Reset tokens
// are stored in this form, never raw.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail lowers and trims an email address for case-insensitive
// lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone converts a Saudi phone number to the canonical +9665XXXXXXXX
// form. Accepts 05XXXXXXXX, 5XXXXXXXX, 9665XXXXXXXX and 00966 prefixed input.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(p)
	switch {
	case strings.HasPrefix(p, "+966"):
		return p
	case strings.HasPrefix(p, "00966"):
		return "+" + p[2:]
	case strings.HasPrefix(p, "966"):
		return "+" + p
	case strings.HasPrefix(p, "05"):
		return "+966" + p[1:]
	case strings.HasPrefix(p, "5"):
		return "+966" + p
	default:
		return p
	}
}
