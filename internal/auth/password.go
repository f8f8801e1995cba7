package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password checks candidates against a bcrypt hash. The zero value has no
// hash and rejects everything.
type Password struct {
	hash []byte
}

// NewPassword prefers a precomputed bcrypt hash and otherwise hashes plain.
// Both empty yields a disabled Password.
func NewPassword(plain, hash string) (*Password, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid password hash: %w", err)
		}
		return &Password{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return &Password{}, nil
	}

	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &Password{hash: h}, nil
}

func (p *Password) Enabled() bool {
	return p != nil && len(p.hash) > 0
}

func (p *Password) Matches(candidate string) bool {
	if !p.Enabled() {
		return false
	}
	return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
}
