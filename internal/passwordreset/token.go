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

// Package passwordreset issues and redeems single-use password reset tokens.
// At most one unused token exists per user: issuing a new one invalidates
// the previous ones first.
package passwordreset

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidToken covers unknown, expired and already used tokens alike.
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrTokenNotFound = errors.New("reset token not found")
)

// Token is a persisted reset token. The raw value is never stored.
type Token struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// UsableAt reports whether the token is unused and unexpired at now.
func (t *Token) UsableAt(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// Repository defines the interface for reset token persistence
type Repository interface {
	// InvalidateUnused marks every unused token of the user as used at the given time
	InvalidateUnused(ctx context.Context, userID string, at time.Time) (int64, error)

	// Create persists a new token
	Create(ctx context.Context, token *Token) error

	// GetUnusedByTokenHash returns the unused token with the given hash or ErrTokenNotFound
	GetUnusedByTokenHash(ctx context.Context, tokenHash string) (*Token, error)

	// MarkUsed consumes an unused token; ErrTokenNotFound when none matches
	MarkUsed(ctx context.Context, tokenHash string, at time.Time) error

	// DeleteExpired removes tokens that expired at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
