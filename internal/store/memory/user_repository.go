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
	"strings"
	"time"

	"github.com/finestafrica/agencyedge/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	s *Store
}

var _ identity.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.TenantID == user.TenantID && strings.EqualFold(u.Email, user.Email) {
			return identity.ErrUserAlreadyExists
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, tenantID, email string) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *UserRepository) UpdatePasswordHash(_ context.Context, userID string, hash identity.PasswordHash) error {
	return r.update(userID, func(u *identity.User) { u.PasswordHash = hash })
}

func (r *UserRepository) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *identity.User) { u.LastLoginAt = &at })
}

func (r *UserRepository) SetActive(_ context.Context, userID string, active bool) error {
	return r.update(userID, func(u *identity.User) { u.IsActive = active })
}

func (r *UserRepository) update(userID string, fn func(*identity.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}
