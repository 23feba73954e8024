package session

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInvalid  = errors.New("session invalid")
)

// Session represents one authenticated agency login. Only the keyed digest
// of the bearer token is kept.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time
}

// ExpiredAt reports whether the session is expired at now. Validity runs up
// to but not including ExpiresAt.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientMeta carries optional request metadata recorded with a credential.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Principal is the authenticated identity behind a valid session: the user
// joined with its agency.
type Principal struct {
	Session         *Session `json:"-"`
	UserID          string   `json:"user_id"`
	TenantID        string   `json:"agency_id"`
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	IsActive        bool     `json:"-"`
	AgencyName      string   `json:"agency_name"`
	AgencySubdomain string   `json:"agency_subdomain"`
}

// Repository defines the interface for session persistence
type Repository interface {
	// Create persists a new session
	Create(ctx context.Context, session *Session) error

	// GetPrincipalByTokenHash loads a session joined with its user and agency
	GetPrincipalByTokenHash(ctx context.Context, tokenHash string) (*Principal, error)

	// Touch updates the last-used time of a session
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// DeleteByTokenHash deletes the matching session; absent sessions are not an error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByUserID deletes all sessions for a user
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteExpired deletes sessions whose expiry is at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
