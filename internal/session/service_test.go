package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/store/memory"
	"github.com/finestafrica/agencyedge/internal/tenant"
	"github.com/finestafrica/agencyedge/internal/token"
)

var epoch = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	sessions *session.Service
	clock    *clock.Mock
	user     *identity.User
	touches  *touchCounter
}

// touchCounter counts Touch calls on top of the memory repository.
type touchCounter struct {
	*memory.SessionRepository
	n int
}

func (c *touchCounter) Touch(ctx context.Context, id string, at time.Time) error {
	c.n++
	return c.SessionRepository.Touch(ctx, id, at)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Tenants().Create(ctx, &tenant.Tenant{
		ID: "tenant-1", Name: "Wanderlust Safaris", Subdomain: "wanderlust", CreatedAt: epoch,
	}))
	user := &identity.User{
		ID: "user-1", TenantID: "tenant-1", Email: "owner@wanderlust.example", Name: "Owner",
		PasswordHash: identity.LegacySHA256("irrelevant"), IsActive: true, CreatedAt: epoch,
	}
	require.NoError(t, store.Users().Create(ctx, user))

	hasher, err := token.NewHasher("test-secret-0123456789")
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(epoch)
	touches := &touchCounter{SessionRepository: store.Sessions()}

	return &fixture{
		store:    store,
		sessions: session.NewService(touches, hasher, 0, session.WithClock(mock)),
		clock:    mock,
		user:     user,
		touches:  touches,
	}
}

// TestPurpose: Validates that a fresh session resolves to its user joined with the agency.
// Scope: Unit Test
// Security: Raw bearer tokens are never persisted (CWE-256)
// Expected: Validate returns the principal with agency_subdomain wanderlust; the stored hash differs from the token.
// Test Case ID: SES-01
func TestSession_CreateValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, sess, err := f.sessions.Create(ctx, f.user.ID, 0, session.ClientMeta{IPAddress: "203.0.113.7", UserAgent: "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, raw, sess.TokenHash)
	assert.Equal(t, epoch.Add(session.DefaultLifetime), sess.ExpiresAt)

	p, err := f.sessions.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, p.UserID)
	assert.Equal(t, "wanderlust", p.AgencySubdomain)
	assert.Equal(t, "Wanderlust Safaris", p.AgencyName)
	assert.Equal(t, "203.0.113.7", p.Session.IPAddress)
}

// TestPurpose: Validates the expiry boundary: valid strictly before expires_at, invalid at the instant.
// Scope: Unit Test
// Security: Session expiration (CWE-613)
// Expected: Valid one microsecond before expiry, ErrSessionExpired at and after expiry.
// Test Case ID: SES-02
func TestSession_Validate_ExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.sessions.Create(ctx, f.user.ID, time.Hour, session.ClientMeta{})
	require.NoError(t, err)

	f.clock.Set(epoch.Add(time.Hour - time.Microsecond))
	_, err = f.sessions.Validate(ctx, raw)
	require.NoError(t, err)

	f.clock.Set(epoch.Add(time.Hour))
	_, err = f.sessions.Validate(ctx, raw)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)

	f.clock.Add(time.Minute)
	_, err = f.sessions.Validate(ctx, raw)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

// TestPurpose: Validates that last-used is written at most once per UTC day.
// Scope: Unit Test
// Expected: Repeated validations on the creation day do not touch; the first validation on a new day does.
// Test Case ID: SES-03
func TestSession_Validate_TouchOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.sessions.Create(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.clock.Add(time.Hour)
		_, err := f.sessions.Validate(ctx, raw)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.touches.n)

	f.clock.Set(epoch.AddDate(0, 0, 1))
	p, err := f.sessions.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, f.touches.n)
	assert.Equal(t, epoch.AddDate(0, 0, 1), p.Session.LastUsedAt)

	f.clock.Add(2 * time.Hour)
	_, err = f.sessions.Validate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, f.touches.n)
}

func TestSession_Validate_UnknownAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Validate(ctx, "")
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
	_, err = f.sessions.Validate(ctx, "never-issued")
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
	assert.NotErrorIs(t, err, session.ErrSessionExpired)
}

func TestSession_Validate_InactiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.sessions.Create(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)
	require.NoError(t, f.store.Users().SetActive(ctx, f.user.ID, false))

	_, err = f.sessions.Validate(ctx, raw)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
}

// failingRepo fails every lookup.
type failingRepo struct {
	session.Repository
}

func (failingRepo) GetPrincipalByTokenHash(context.Context, string) (*session.Principal, error) {
	return nil, errors.New("connection reset by peer")
}

// TestPurpose: Validates that a store failure during validation never authenticates.
// Scope: Unit Test
// Security: Fail closed on ambiguous state
// Expected: ErrSessionInvalid.
// Test Case ID: SES-04
func TestSession_Validate_StoreErrorFailsClosed(t *testing.T) {
	hasher, err := token.NewHasher("test-secret-0123456789")
	require.NoError(t, err)
	svc := session.NewService(failingRepo{}, hasher, time.Hour)

	_, err = svc.Validate(context.Background(), "some-token")
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
}

// TestPurpose: Validates that logout is idempotent.
// Scope: Unit Test
// Expected: Deleting the same token twice succeeds both times and the token stays invalid.
// Test Case ID: SES-05
func TestSession_Delete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.sessions.Create(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Delete(ctx, raw))
	assert.Equal(t, 0, f.store.Sessions().Count())
	require.NoError(t, f.sessions.Delete(ctx, raw))
	assert.Equal(t, 0, f.store.Sessions().Count())
	require.NoError(t, f.sessions.Delete(ctx, ""))

	_, err = f.sessions.Validate(ctx, raw)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
}

// TestPurpose: Validates that a password update invalidates every session the user holds.
// Scope: Unit Test
// Security: Session invalidation on credential change (CWE-613)
// Expected: All tokens issued before UpdatePassword are invalid afterwards; sessions of other users survive.
// Test Case ID: SES-06
func TestSession_UpdatePassword_RevokesAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &identity.User{ID: "user-2", TenantID: "tenant-1", Email: "agent@wanderlust.example", IsActive: true}
	require.NoError(t, f.store.Users().Create(ctx, other))

	var tokens []string
	for i := 0; i < 3; i++ {
		raw, _, err := f.sessions.Create(ctx, f.user.ID, 0, session.ClientMeta{})
		require.NoError(t, err)
		tokens = append(tokens, raw)
	}
	otherToken, _, err := f.sessions.Create(ctx, other.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	ids := identity.NewService(f.store.Users(), identity.NewPasswordHasher(bcrypt.MinCost), f.sessions, &audit.Recorder{})
	require.NoError(t, ids.UpdatePassword(ctx, f.user.ID, "brand-new-password"))

	for _, raw := range tokens {
		_, err := f.sessions.Validate(ctx, raw)
		assert.ErrorIs(t, err, session.ErrSessionInvalid)
	}
	_, err = f.sessions.Validate(ctx, otherToken)
	assert.NoError(t, err)
}

func TestSession_CleanupExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.sessions.Create(ctx, f.user.ID, time.Hour, session.ClientMeta{})
	require.NoError(t, err)
	_, _, err = f.sessions.Create(ctx, f.user.ID, 48*time.Hour, session.ClientMeta{})
	require.NoError(t, err)

	f.clock.Add(time.Hour)
	n, err := f.sessions.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, f.store.Sessions().Count())
}
