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
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/id"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/observability/tracing"
)

// bcrypt ignores input past this length
const maxPasswordBytes = 72

// Service provides identity-related business logic
type Service struct {
	repo        UserRepository
	hasher      *PasswordHasher
	sessions    SessionRevoker
	auditLogger audit.Logger
	log         *slog.Logger

	dummyOnce sync.Once
	dummy     PasswordHash
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	hasher *PasswordHasher,
	sessions SessionRevoker,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		sessions:    sessions,
		auditLogger: auditLogger,
		log:         slog.Default().With(logger.Component("identity")),
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser provisions an active user with a password in tenantID.
func (s *Service) CreateUser(ctx context.Context, tenantID, email, name, password string) (*User, error) {
	email = NormalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	if _, err := s.repo.GetByEmail(ctx, tenantID, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &User{
		ID:           id.NewUUIDv7(),
		TenantID:     tenantID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		TenantID: tenantID,
		ActorID:  user.ID,
		Resource: email,
	})
	return user, nil
}

// Authenticate verifies email and password within a tenant. Every failure
// that could reveal whether the email exists is reported as
// ErrInvalidCredentials. A user still on the legacy hash scheme is moved to
// bcrypt on success.
func (s *Service) Authenticate(ctx context.Context, tenantID, email, password string) (*User, error) {
	ctx, span := tracing.Start(ctx, "identity.Service.Authenticate")
	defer span.End()

	email = NormalizeEmail(email)
	user, err := s.repo.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		// keep response time independent of whether the email exists
		_, _ = s.hasher.Verify(password, s.dummyHash())
		s.loginFailed(ctx, tenantID, "", email, "user_not_found")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		// same work as the unknown-email branch
		_, _ = s.hasher.Verify(password, s.dummyHash())
		s.loginFailed(ctx, tenantID, user.ID, email, "inactive")
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.ErrorContext(ctx, "password verification failed", logger.UserID(user.ID), logger.Error(err))
	}
	if err != nil || !valid {
		s.loginFailed(ctx, tenantID, user.ID, email, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.WarnContext(ctx, "failed to record last login", logger.UserID(user.ID), logger.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: tenantID,
		ActorID:  user.ID,
		Resource: "login",
	})
	return user, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	from := user.PasswordHash.Scheme
	upgraded, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repo.UpdatePasswordHash(ctx, user.ID, upgraded)
	}
	if err != nil {
		// the old hash still verifies, so the next login retries
		s.log.WarnContext(ctx, "password hash upgrade failed", logger.UserID(user.ID), logger.Error(err))
		return
	}
	user.PasswordHash = upgraded
	s.log.InfoContext(ctx, "password hash upgraded",
		logger.UserID(user.ID),
		logger.String("from_scheme", from),
	)
}

func (s *Service) loginFailed(ctx context.Context, tenantID, userID, email, reason string) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginFailed,
		TenantID: tenantID,
		ActorID:  userID,
		Resource: email,
		Metadata: map[string]any{"reason": reason},
	})
}

func (s *Service) dummyHash() PasswordHash {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("agencyedge-timing-equalizer")
		if err != nil {
			h = LegacySHA256("agencyedge-timing-equalizer")
		}
		s.dummy = h
	})
	return s.dummy
}

// UpdatePassword replaces the user's password and revokes every session the
// user holds. The revocation is part of the operation: if it fails the
// error is returned even though the new hash is already stored.
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	revoked, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions after password change: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordChanged,
		ActorID:  userID,
		Resource: "password",
		Metadata: map[string]any{"sessions_revoked": revoked},
	})
	return nil
}

// ChangePassword verifies the current password before updating it.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	valid, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	return s.UpdatePassword(ctx, userID, newPassword)
}

// Deactivate soft-deletes a user and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	revoked, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserDeactivated,
		ActorID:  userID,
		Resource: "user",
		Metadata: map[string]any{"sessions_revoked": revoked},
	})
	return nil
}

// GetByEmail retrieves a user by email within a tenant
func (s *Service) GetByEmail(ctx context.Context, tenantID, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, tenantID, NormalizeEmail(email))
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Helper functions
func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isStrongPassword(password string) bool {
	return len(password) >= 8 && len(password) <= maxPasswordBytes
}
