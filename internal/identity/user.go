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
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrUnknownScheme      = errors.New("unknown password hash scheme")
)

// User is a login identity scoped to exactly one agency. Email is unique
// within the agency only; the same address may exist under another agency
// as a distinct user.
type User struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	PasswordHash PasswordHash
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create inserts a user; ErrUserAlreadyExists when the email is taken in the tenant
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email within a tenant, case-insensitively
	GetByEmail(ctx context.Context, tenantID, email string) (*User, error)

	// UpdatePasswordHash replaces the stored password hash
	UpdatePasswordHash(ctx context.Context, userID string, hash PasswordHash) error

	// UpdateLastLogin records a successful login
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// SetActive flips the soft-delete flag
	SetActive(ctx context.Context, userID string, active bool) error
}

// SessionRevoker revokes every session of a user.
type SessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
