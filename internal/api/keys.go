package api

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyCost is the bcrypt cost used by HashAdminKey.
const AdminKeyCost = 12

// HashAdminKey hashes an admin API key for ADMIN_API_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), AdminKeyCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// validAdminKey checks a presented bearer key. A configured hash takes
// precedence over the plaintext key.
func (s *Server) validAdminKey(got string) bool {
	if s.adminKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.adminKeyHash), []byte(got)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) == 1
}
