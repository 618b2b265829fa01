// Package auth provides password hashing, session tokens, and request identity helpers.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt work factor used for new hashes.
const DefaultBcryptCost = 10

// bcryptMaxPasswordLen is the longest input, in bytes, bcrypt accepts.
const bcryptMaxPasswordLen = 72

// Supported password hash algorithms.
const (
	AlgoBcrypt   = "bcrypt"
	AlgoArgon2id = "argon2id"
)

// ErrUnknownHashFormat indicates a stored digest matches no supported algorithm.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash creates a salted digest from a password.
	Hash(password string) (string, error)

	// Verify checks if a password matches a digest.
	// A mismatch is (false, nil); errors mean the digest could not be checked.
	Verify(password, digest string) (bool, error)
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. Cost is clamped to bcrypt's valid range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash creates a bcrypt hash from a password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// Verify checks if a password matches a bcrypt hash.
func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bcrypt verify: %w", err)
	}
	return true, nil
}

// MultiHasher hashes with one algorithm and verifies digests of any supported one,
// so the configured algorithm can change without invalidating stored credentials.
type MultiHasher struct {
	primary PasswordHasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

// NewHasher returns a MultiHasher whose new digests use algo ("bcrypt" or "argon2id").
func NewHasher(algo string, bcryptCost int) (*MultiHasher, error) {
	m := &MultiHasher{
		bcrypt: NewBcryptHasher(bcryptCost),
		argon2: NewArgon2Hasher(),
	}

	switch algo {
	case "", AlgoBcrypt:
		m.primary = m.bcrypt
	case AlgoArgon2id:
		m.primary = m.argon2
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", algo)
	}

	return m, nil
}

// Hash creates a digest with the configured algorithm. Passwords bcrypt cannot
// take whole fall back to argon2id.
func (m *MultiHasher) Hash(password string) (string, error) {
	if _, ok := m.primary.(*BcryptHasher); ok && len(password) > bcryptMaxPasswordLen {
		return m.argon2.Hash(password)
	}
	return m.primary.Hash(password)
}

// Verify dispatches on the digest prefix.
func (m *MultiHasher) Verify(password, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return m.argon2.Verify(password, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return m.bcrypt.Verify(password, digest)
	default:
		return false, ErrUnknownHashFormat
	}
}

var (
	_ PasswordHasher = (*BcryptHasher)(nil)
	_ PasswordHasher = (*Argon2Hasher)(nil)
	_ PasswordHasher = (*MultiHasher)(nil)
)
