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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

var _ identity.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, email, name, password_scheme, password_hash,
	is_active, last_login_at, created_at, updated_at`

// Create creates a new agency user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenant_users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID, user.TenantID, user.Email, user.Name,
		user.PasswordHash.Scheme, user.PasswordHash.Value,
		user.IsActive, user.LastLoginAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM tenant_users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email within a tenant
func (r *UserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*identity.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM tenant_users
		WHERE tenant_id = $1 AND lower(email) = lower($2)
	`, tenantID, email)
	return scanUser(row)
}

// UpdatePasswordHash replaces the stored hash and its scheme together
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID string, hash identity.PasswordHash) error {
	return r.exec(ctx, "update password", `
		UPDATE tenant_users SET password_scheme = $2, password_hash = $3, updated_at = NOW()
		WHERE id = $1
	`, userID, hash.Scheme, hash.Value)
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, "update last login", `
		UPDATE tenant_users SET last_login_at = $2 WHERE id = $1
	`, userID, at)
}

// SetActive flips the soft-delete flag
func (r *UserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	return r.exec(ctx, "update user status", `
		UPDATE tenant_users SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, userID, active)
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name,
		&u.PasswordHash.Scheme, &u.PasswordHash.Value,
		&u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
