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

// Package memory implements every repository in process memory. It backs
// DB_DRIVER=memory for local development and the cross-package tests.
package memory

import (
	"sync"

	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// Store holds all tables behind one lock so joins see a consistent view.
type Store struct {
	mu          sync.RWMutex
	tenants     map[string]*tenant.Tenant
	users       map[string]*identity.User
	sessions    map[string]*session.Session
	resetTokens map[string]*passwordreset.Token
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tenants:     make(map[string]*tenant.Tenant),
		users:       make(map[string]*identity.User),
		sessions:    make(map[string]*session.Session),
		resetTokens: make(map[string]*passwordreset.Token),
	}
}

// Tenants returns the tenant repository view.
func (s *Store) Tenants() *TenantRepository { return &TenantRepository{s: s} }

// Users returns the user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Sessions returns the session repository view.
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s: s} }

// ResetTokens returns the reset token repository view.
func (s *Store) ResetTokens() *ResetTokenRepository { return &ResetTokenRepository{s: s} }
