// Package password provides credential hashing and verification for MerchAuth.
//
// Hashes are encoded as self-describing PHC-style strings so that every
// parameter needed for verification travels with the hash itself:
//
//	$scrypt$n=16384,r=8,p=1$<base64 salt>$<base64 key>
//
// Changing the default cost parameters later never invalidates stored
// credentials: verification always recomputes with the parameters embedded
// in the stored string.
package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"
)

const (
	scryptN       = 16384 // work factor
	scryptR       = 8     // block size
	scryptP       = 1     // parallelism
	scryptSaltLen = 16
	scryptKeyLen  = 32

	// Bounds on accepted password length. The ceiling caps the cost of a
	// single derivation against oversized inputs.
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// Hasher defines the interface for password hashing and verification.
type Hasher interface {
	Hash(password string) (string, error)

	// Compare reports whether password matches the encoded hash. A
	// malformed or unrecognized hash compares as false, never as an error:
	// a corrupt credential record must read as wrong-password, not abort
	// a login.
	Compare(password, hash string) bool
}

// ScryptHasher implements Hasher using scrypt.
//
// Derivations are memory-hard; a weighted semaphore bounds how many run at
// once so a burst of logins cannot exhaust memory.
type ScryptHasher struct {
	sem *semaphore.Weighted
}

func NewScryptHasher() *ScryptHasher {
	return &ScryptHasher{
		sem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

func (h *ScryptHasher) Hash(pw string) (string, error) {
	if n := len([]rune(pw)); n < MinPasswordLen {
		return "", oops.Code("AUTH_VALIDATION").Errorf("password must be at least %d characters", MinPasswordLen)
	} else if n > MaxPasswordLen {
		return "", oops.Code("AUTH_VALIDATION").Errorf("password must be at most %d characters", MaxPasswordLen)
	}

	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}

	key, err := h.derive([]byte(pw), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}

	encoded := fmt.Sprintf(
		"$scrypt$n=%d,r=%d,p=%d$%s$%s",
		scryptN, scryptR, scryptP,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

func (h *ScryptHasher) Compare(pw, encoded string) bool {
	// Credentials hashed before the scrypt migration.
	if strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(pw)) == nil
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" {
		return false
	}
	if parts[1] != "scrypt" {
		return false
	}

	var n, r, p int
	if _, err := fmt.Sscanf(parts[2], "n=%d,r=%d,p=%d", &n, &r, &p); err != nil {
		return false
	}
	if n < 2 || n&(n-1) != 0 || r < 1 || p < 1 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(stored) == 0 {
		return false
	}

	// Recompute with the stored parameters, never the current defaults.
	computed, err := h.derive([]byte(pw), salt, n, r, p, len(stored))
	if err != nil {
		return false
	}

	if len(computed) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare(computed, stored) == 1
}

func (h *ScryptHasher) derive(pw, salt []byte, n, r, p, keyLen int) ([]byte, error) {
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)
	return scrypt.Key(pw, salt, n, r, p, keyLen)
}
