package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// CatalogKey returns the cache key of the library catalog served at baseURL.
// The URL is hashed so mirrors and test servers never share an entry.
func CatalogKey(baseURL string) string {
	return fmt.Sprintf("catalog:%s", Hash([]byte(baseURL)))
}
