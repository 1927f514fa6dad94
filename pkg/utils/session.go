package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MD5Hash generates MD5 hash of input string
func MD5Hash(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}

// NormalizedHash hashes text after case and whitespace folding so that
// trivially different spellings share a key.
func NormalizedHash(input string) string {
	return MD5Hash(strings.Join(strings.Fields(strings.ToLower(input)), " "))
}

// GenerateRandomID generates a random ID
func GenerateRandomID(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)[:length]
}

// NewQueryID returns the identifier attached to a symptom response.
func NewQueryID() string {
	return "query_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateQueryID reports whether id has the NewQueryID shape.
func ValidateQueryID(id string) bool {
	raw, ok := strings.CutPrefix(id, "query_")
	if !ok || len(raw) != 32 {
		return false
	}
	_, err := hex.DecodeString(raw)
	return err == nil
}
