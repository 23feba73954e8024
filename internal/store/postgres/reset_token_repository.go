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

	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/jackc/pgx/v5"
)

// ResetTokenRepository implements passwordreset.Repository
type ResetTokenRepository struct {
	db *DB
}

var _ passwordreset.Repository = (*ResetTokenRepository)(nil)

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db *DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// InvalidateUnused marks every outstanding token of the user as used
func (r *ResetTokenRepository) InvalidateUnused(ctx context.Context, userID string, at time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = $2
		WHERE user_id = $1 AND used_at IS NULL
	`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate reset tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

// Create persists a new reset token
func (r *ResetTokenRepository) Create(ctx context.Context, t *passwordreset.Token) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.UsedAt, t.IPAddress, t.UserAgent, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// GetUnusedByTokenHash returns the unused token with the given digest
func (r *ResetTokenRepository) GetUnusedByTokenHash(ctx context.Context, tokenHash string) (*passwordreset.Token, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t passwordreset.Token
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, ip_address, user_agent, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND used_at IS NULL
	`, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.IPAddress, &t.UserAgent, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, passwordreset.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return &t, nil
}

// MarkUsed consumes an unused token. The used_at guard makes concurrent
// redemptions of the same token race to a single winner.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, tokenHash string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL
	`, tokenHash, at)
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return passwordreset.ErrTokenNotFound
	}
	return nil
}

// DeleteExpired removes expired tokens
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
