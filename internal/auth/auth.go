// Package auth validates the admin API key guarding destructive endpoints.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Authenticator validates the admin API key against its configured hash.
type Authenticator struct {
	keyHash string
}

// NewAuthenticator creates an authenticator for the given sha256 hex digest.
// Returns nil when no hash is configured, which disables admin endpoints.
func NewAuthenticator(keyHash string) *Authenticator {
	if keyHash == "" {
		return nil
	}
	return &Authenticator{keyHash: strings.ToLower(keyHash)}
}

// ValidateAPIKey checks a presented key against the configured hash.
func (a *Authenticator) ValidateAPIKey(apiKey string) error {
	hash := sha256.Sum256([]byte(apiKey))
	keyHash := hex.EncodeToString(hash[:])

	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(a.keyHash)) != 1 {
		return fmt.Errorf("invalid API key")
	}
	return nil
}

// ExtractAPIKey extracts the API key from the Authorization header.
func ExtractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	return parts[1], nil
}
