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

package memory

import (
	"context"
	"time"

	"github.com/finestafrica/agencyedge/internal/passwordreset"
)

// ResetTokenRepository implements passwordreset.Repository
type ResetTokenRepository struct {
	s *Store
}

var _ passwordreset.Repository = (*ResetTokenRepository)(nil)

func (r *ResetTokenRepository) InvalidateUnused(_ context.Context, userID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.resetTokens {
		if t.UserID == userID && t.UsedAt == nil {
			used := at
			t.UsedAt = &used
			n++
		}
	}
	return n, nil
}

func (r *ResetTokenRepository) Create(_ context.Context, t *passwordreset.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	r.s.resetTokens[t.ID] = &cp
	return nil
}

func (r *ResetTokenRepository) GetUnusedByTokenHash(_ context.Context, tokenHash string) (*passwordreset.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.resetTokens {
		if t.TokenHash == tokenHash && t.UsedAt == nil {
			cp := *t
			return &cp, nil
		}
	}
	return nil, passwordreset.ErrTokenNotFound
}

func (r *ResetTokenRepository) MarkUsed(_ context.Context, tokenHash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.resetTokens {
		if t.TokenHash == tokenHash && t.UsedAt == nil {
			used := at
			t.UsedAt = &used
			return nil
		}
	}
	return passwordreset.ErrTokenNotFound
}

func (r *ResetTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.resetTokens {
		if !now.Before(t.ExpiresAt) {
			delete(r.s.resetTokens, id)
			n++
		}
	}
	return n, nil
}
