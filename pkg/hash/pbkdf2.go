// Package hash implements the salted PBKDF2 credential encoding used by the
// accounts table: "pbkdf2_sha256$<iterations>$<salt>$<base64 hash>". Stored
// values not in this format are legacy plaintext.
package hash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	algorithm = "pbkdf2_sha256"

	DefaultIterations = 600000

	saltBytes = 16
	keyLen    = 32
)

// IsEncoded reports whether s is a credential in the secure-hash format:
// the algorithm tag followed by exactly three $-separated segments.
func IsEncoded(s string) bool {
	return strings.HasPrefix(s, algorithm+"$") && strings.Count(s, "$") == 3
}

// Hasher derives and verifies PBKDF2-SHA256 credentials.
type Hasher struct {
	iterations int
}

func New(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash encodes password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt := base64.RawURLEncoding.EncodeToString(raw)
	return encode(password, salt, h.iterations), nil
}

// Verify reports whether password matches the encoded credential. The
// comparison of the derived keys is constant-time. Malformed encodings
// never match.
func (h *Hasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != algorithm {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	want := encode(password, parts[2], iterations)
	return subtle.ConstantTimeCompare([]byte(want), []byte(encoded)) == 1
}

func encode(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLen, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", algorithm, iterations, salt, base64.StdEncoding.EncodeToString(key))
}
