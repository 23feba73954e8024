// Copyright 2026 The Agency Edge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password hash schemes
const (
	SchemeBcrypt       = "bcrypt"
	SchemeLegacySHA256 = "legacy-sha256"
)

// PasswordHash is a stored password hash tagged with the scheme that produced it.
type PasswordHash struct {
	Scheme string
	Value  string
}

// PasswordHasher hashes new passwords with bcrypt and verifies both bcrypt
// and legacy unsalted SHA-256 hashes.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a password with bcrypt.
func (h *PasswordHasher) Hash(password string) (PasswordHash, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return PasswordHash{Scheme: SchemeBcrypt, Value: string(b)}, nil
}

// Verify checks password against hash, dispatching on its scheme.
// A mismatch is (false, nil); malformed hashes and unknown schemes are errors.
func (h *PasswordHasher) Verify(password string, hash PasswordHash) (bool, error) {
	switch hash.Scheme {
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(hash.Value), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify bcrypt hash: %w", err)
	case SchemeLegacySHA256:
		sum := sha256.Sum256([]byte(password))
		computed := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(hash.Value)) == 1, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownScheme, hash.Scheme)
	}
}

// NeedsUpgrade reports whether hash should be replaced by a fresh bcrypt hash.
func (h *PasswordHasher) NeedsUpgrade(hash PasswordHash) bool {
	if hash.Scheme != SchemeBcrypt {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash.Value))
	return err != nil || cost < h.cost
}

// LegacySHA256 produces a hash in the legacy scheme. It exists for importing
// pre-existing records and for tests; new passwords always use Hash.
func LegacySHA256(password string) PasswordHash {
	sum := sha256.Sum256([]byte(password))
	return PasswordHash{Scheme: SchemeLegacySHA256, Value: hex.EncodeToString(sum[:])}
}
