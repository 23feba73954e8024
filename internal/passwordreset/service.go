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

package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/id"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/mail"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/tenant"
	"github.com/finestafrica/agencyedge/internal/token"
)

// DefaultLifetime applies when no lifetime is configured.
const DefaultLifetime = time.Hour

// Accounts is the slice of the identity service the reset flow needs.
type Accounts interface {
	GetByEmail(ctx context.Context, tenantID, email string) (*identity.User, error)
	GetUser(ctx context.Context, userID string) (*identity.User, error)
	UpdatePassword(ctx context.Context, userID, newPassword string) error
}

// Config holds reset link settings.
type Config struct {
	Lifetime   time.Duration
	Scheme     string
	RootDomain string
	PagePath   string
}

// Service manages the reset token lifecycle.
type Service struct {
	repo        Repository
	hasher      *token.Hasher
	accounts    Accounts
	sender      mail.Sender
	auditLogger audit.Logger
	cfg         Config
	clock       clock.Clock
	log         *slog.Logger
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

// NewService creates a reset token service.
func NewService(
	repo Repository,
	hasher *token.Hasher,
	accounts Accounts,
	sender mail.Sender,
	auditLogger audit.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.PagePath == "" {
		cfg.PagePath = "/reset-password"
	}
	s := &Service{
		repo:        repo,
		hasher:      hasher,
		accounts:    accounts,
		sender:      sender,
		auditLogger: auditLogger,
		cfg:         cfg,
		clock:       clock.New(),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("passwordreset"))
	return s
}

// Issue invalidates every unused token of userID and then stores a new one,
// returning its raw value. Two concurrent calls may each invalidate the
// other's token; the last insert is the one that stays valid.
func (s *Service) Issue(ctx context.Context, userID string, ttl time.Duration, meta session.ClientMeta) (string, *Token, error) {
	if ttl <= 0 {
		ttl = s.cfg.Lifetime
	}
	now := s.now()

	if _, err := s.repo.InvalidateUnused(ctx, userID, now); err != nil {
		return "", nil, fmt.Errorf("failed to invalidate previous reset tokens: %w", err)
	}

	raw, err := token.Generate()
	if err != nil {
		return "", nil, err
	}
	t := &Token{
		ID:        id.NewUUIDv7(),
		UserID:    userID,
		TokenHash: s.hasher.Hash(raw),
		ExpiresAt: now.Add(ttl),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return "", nil, fmt.Errorf("failed to create reset token: %w", err)
	}
	return raw, t, nil
}

// Validate returns the user a token was issued to without consuming it.
func (s *Service) Validate(ctx context.Context, raw string) (string, error) {
	t, err := s.lookup(ctx, raw)
	if err != nil {
		return "", err
	}
	return t.UserID, nil
}

func (s *Service) lookup(ctx context.Context, raw string) (*Token, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	t, err := s.repo.GetUnusedByTokenHash(ctx, s.hasher.Hash(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}
	if !t.UsableAt(s.now()) {
		return nil, ErrInvalidToken
	}
	return t, nil
}

// Consume marks the token used. Call it only after the password change the
// token authorized has been stored.
func (s *Service) Consume(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrInvalidToken
	}
	if err := s.repo.MarkUsed(ctx, s.hasher.Hash(raw), s.now()); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return nil
}

// RequestReset emails a reset link to email if it belongs to an active user
// of agency. Unknown or inactive accounts get the same silent success so the
// endpoint cannot be used to enumerate users.
func (s *Service) RequestReset(ctx context.Context, agency *tenant.Tenant, email string, meta session.ClientMeta) error {
	user, err := s.accounts.GetByEmail(ctx, agency.ID, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.log.DebugContext(ctx, "reset requested for unknown email", logger.Subdomain(agency.Subdomain))
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	raw, _, err := s.Issue(ctx, user.ID, 0, meta)
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Reset your %s password", agency.Name),
		Body: fmt.Sprintf(
			"Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			displayName(user), s.cfg.Lifetime, s.resetURL(agency.Subdomain, raw),
		),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypePasswordResetRequested,
		TenantID:  agency.ID,
		ActorID:   user.ID,
		Resource:  "password",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// ResetPassword redeems a token for tenantID and sets a new password. The
// token is consumed only after the update succeeded, so a rejected password
// leaves it usable.
func (s *Service) ResetPassword(ctx context.Context, tenantID, raw, newPassword string) error {
	t, err := s.lookup(ctx, raw)
	if err != nil {
		return err
	}
	user, err := s.accounts.GetUser(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	// a token minted for one agency must not reset a password from another
	if user.TenantID != tenantID || !user.IsActive {
		return ErrInvalidToken
	}

	if err := s.accounts.UpdatePassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	if err := s.Consume(ctx, raw); err != nil {
		s.log.WarnContext(ctx, "reset token not consumed after password update",
			logger.UserID(user.ID),
			logger.Error(err),
		)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordResetCompleted,
		TenantID: tenantID,
		ActorID:  user.ID,
		Resource: "password",
	})
	return nil
}

// CleanupExpired purges expired tokens.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	return n, nil
}

func (s *Service) resetURL(subdomain, raw string) string {
	u := url.URL{
		Scheme:   s.cfg.Scheme,
		Host:     subdomain + "." + s.cfg.RootDomain,
		Path:     s.cfg.PagePath,
		RawQuery: url.Values{"token": {raw}}.Encode(),
	}
	return u.String()
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func displayName(u *identity.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
