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

	"github.com/finestafrica/agencyedge/internal/session"
)

// SessionRepository implements session.Repository
type SessionRepository struct {
	s *Store
}

var _ session.Repository = (*SessionRepository)(nil)

func (r *SessionRepository) Create(_ context.Context, sess *session.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *SessionRepository) GetPrincipalByTokenHash(_ context.Context, tokenHash string) (*session.Principal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sess := range r.s.sessions {
		if sess.TokenHash != tokenHash {
			continue
		}
		u, ok := r.s.users[sess.UserID]
		if !ok {
			return nil, session.ErrSessionNotFound
		}
		t, ok := r.s.tenants[u.TenantID]
		if !ok {
			return nil, session.ErrSessionNotFound
		}
		cp := *sess
		return &session.Principal{
			Session:         &cp,
			UserID:          u.ID,
			TenantID:        u.TenantID,
			Email:           u.Email,
			Name:            u.Name,
			IsActive:        u.IsActive,
			AgencyName:      t.Name,
			AgencySubdomain: t.Subdomain,
		}, nil
	}
	return nil, session.ErrSessionNotFound
}

func (r *SessionRepository) Touch(_ context.Context, sessionID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return session.ErrSessionNotFound
	}
	sess.LastUsedAt = at
	return nil
}

func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if sess.ExpiredAt(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored sessions.
func (r *SessionRepository) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.sessions)
}
