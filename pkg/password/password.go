// Package password hashes and verifies account passwords.
//
// Stored forms are "hex(salt):hex(key)" where key is PBKDF2-HMAC-SHA512 over
// the password. A stored form without a ':' separator is a legacy plaintext
// password; Verify still accepts it so old accounts can log in until the
// batch migration rewrites them.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used for every stored hash.
	DefaultIterations = 210_000

	saltSize  = 16
	keySize   = 64
	separator = ":"
)

// Hasher derives and checks salted PBKDF2 hashes with a fixed iteration count.
// The zero value uses DefaultIterations.
type Hasher struct {
	Iterations int
}

// New returns a Hasher using the given iteration count.
// Non-positive values fall back to DefaultIterations.
func New(iterations int) Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return Hasher{Iterations: iterations}
}

func (h Hasher) iterations() int {
	if h.Iterations <= 0 {
		return DefaultIterations
	}
	return h.Iterations
}

// Hash returns the stored form of plain using a fresh random salt.
func (h Hasher) Hash(plain string) string {
	salt := make([]byte, saltSize)
	// crypto/rand.Read never returns an error.
	_, _ = rand.Read(salt)

	key := pbkdf2.Key([]byte(plain), salt, h.iterations(), keySize, sha512.New)
	return hex.EncodeToString(salt) + separator + hex.EncodeToString(key)
}

// Verify reports whether plain matches stored. Malformed stored forms never match.
func (h Hasher) Verify(plain, stored string) bool {
	if IsLegacy(stored) {
		if stored == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(plain), []byte(stored)) == 1
	}

	saltHex, keyHex, _ := strings.Cut(stored, separator)
	if saltHex == "" || keyHex == "" || strings.Contains(keyHex, separator) {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(plain), salt, h.iterations(), len(want), sha512.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// IsLegacy reports whether stored is a plaintext password from before hashing
// was introduced.
func IsLegacy(stored string) bool {
	return !strings.Contains(stored, separator)
}

var std = New(DefaultIterations)

// Hash hashes plain with DefaultIterations.
func Hash(plain string) string { return std.Hash(plain) }

// Verify checks plain against stored with DefaultIterations.
func Verify(plain, stored string) bool { return std.Verify(plain, stored) }
