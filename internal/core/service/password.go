package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookandsign/auth-system/internal/core/domain"
)

// BcryptHasher hashes passwords with bcrypt at a configurable cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is 0.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash returns a salted digest of plaintext. Passwords that Verify could
// never accept are refused with a validation error.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", domain.Validation("password must not be blank")
	}
	if len(plaintext) > domain.MaxPasswordBytes {
		return "", domain.Validation(fmt.Sprintf("password must be at most %d bytes", domain.MaxPasswordBytes))
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Blank passwords never match.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	if strings.TrimSpace(plaintext) == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Cost reports the work factor new digests are produced with.
func (h *BcryptHasher) Cost() int { return h.cost }

// randomPasswordHash returns a digest of a random secret, for accounts created
// without a password. Nobody can log in with it until a password is set.
func randomPasswordHash(h interface{ Hash(string) (string, error) }) (string, error) {
	return h.Hash(uuid.NewString())
}
