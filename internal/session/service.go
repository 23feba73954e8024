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

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/finestafrica/agencyedge/internal/id"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/observability/metrics"
	"github.com/finestafrica/agencyedge/internal/observability/tracing"
	"github.com/finestafrica/agencyedge/internal/token"
)

// DefaultLifetime applies when no lifetime is configured.
const DefaultLifetime = 7 * 24 * time.Hour

// Service issues, validates and revokes sessions.
type Service struct {
	repo     Repository
	hasher   *token.Hasher
	lifetime time.Duration
	clock    clock.Clock
	log      *slog.Logger
	metrics  *metrics.Instruments
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithInstruments records validation outcomes.
func WithInstruments(m *metrics.Instruments) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a session service.
func NewService(repo Repository, hasher *token.Hasher, lifetime time.Duration, opts ...Option) *Service {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	s := &Service{
		repo:     repo,
		hasher:   hasher,
		lifetime: lifetime,
		clock:    clock.New(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("session"))
	return s
}

// Lifetime returns the default session lifetime. Cookie max-age should match it.
func (s *Service) Lifetime() time.Duration {
	return s.lifetime
}

// Create starts a session for userID and returns the raw bearer token.
// A non-positive ttl uses the configured lifetime.
func (s *Service) Create(ctx context.Context, userID string, ttl time.Duration, meta ClientMeta) (string, *Session, error) {
	if ttl <= 0 {
		ttl = s.lifetime
	}
	raw, err := token.Generate()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	sess := &Session{
		ID:         id.NewUUIDv7(),
		UserID:     userID,
		TokenHash:  s.hasher.Hash(raw),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.DebugContext(ctx, "session created", logger.UserID(userID), logger.SessionID(sess.ID))
	return raw, sess, nil
}

// Validate resolves a raw token to its principal. It fails closed: any
// store error is reported as ErrSessionInvalid. Expired sessions yield
// ErrSessionExpired, which also matches ErrSessionInvalid.
func (s *Service) Validate(ctx context.Context, raw string) (*Principal, error) {
	ctx, span := tracing.Start(ctx, "session.Service.Validate")
	defer span.End()

	p, outcome, err := s.validate(ctx, raw)
	s.metrics.SessionValidated(ctx, outcome)
	return p, err
}

func (s *Service) validate(ctx context.Context, raw string) (*Principal, string, error) {
	if raw == "" {
		return nil, "missing", ErrSessionInvalid
	}

	p, err := s.repo.GetPrincipalByTokenHash(ctx, s.hasher.Hash(raw))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, "unknown", ErrSessionInvalid
		}
		s.log.ErrorContext(ctx, "session lookup failed", logger.Operation("validate"), logger.Error(err))
		return nil, "error", ErrSessionInvalid
	}

	now := s.now()
	if p.Session.ExpiredAt(now) {
		return nil, "expired", fmt.Errorf("%w: %w", ErrSessionInvalid, ErrSessionExpired)
	}
	if !p.IsActive {
		return nil, "inactive", ErrSessionInvalid
	}

	if !sameUTCDay(p.Session.LastUsedAt, now) {
		if err := s.repo.Touch(ctx, p.Session.ID, now); err != nil {
			s.log.WarnContext(ctx, "failed to touch session", logger.SessionID(p.Session.ID), logger.Error(err))
		} else {
			p.Session.LastUsedAt = now
		}
	}
	return p, "valid", nil
}

// Delete revokes the session behind raw. Unknown tokens are not an error.
func (s *Service) Delete(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	if err := s.repo.DeleteByTokenHash(ctx, s.hasher.Hash(raw)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every session of userID.
func (s *Service) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions for user: %w", err)
	}
	s.log.InfoContext(ctx, "sessions revoked", logger.UserID(userID), logger.RowsAffected(n))
	return n, nil
}

// CleanupExpired purges expired sessions.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return n, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
