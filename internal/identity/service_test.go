package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/finestafrica/agencyedge/internal/audit"
)

// MockUserRepository is a simple in-memory implementation of UserRepository
type MockUserRepository struct {
	mu          sync.Mutex
	users       map[string]*User
	hashUpdates int
	failUpdate  error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*User)}
}

func (m *MockUserRepository) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID == user.TenantID && strings.EqualFold(u.Email, user.Email) {
			return ErrUserAlreadyExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, tenantID, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) UpdatePasswordHash(_ context.Context, userID string, hash PasswordHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	m.hashUpdates++
	return nil
}

func (m *MockUserRepository) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *MockUserRepository) SetActive(_ context.Context, userID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

// mockRevoker records revocations
type mockRevoker struct {
	revoked []string
	err     error
}

func (m *mockRevoker) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.revoked = append(m.revoked, userID)
	return 2, nil
}

func newTestService() (*Service, *MockUserRepository, *mockRevoker, *audit.Recorder) {
	repo := NewMockUserRepository()
	rev := &mockRevoker{}
	rec := &audit.Recorder{}
	return NewService(repo, NewPasswordHasher(bcrypt.MinCost), rev, rec), repo, rev, rec
}

// TestPurpose: Validates the complete authentication flow for a tenant user.
// Scope: Unit Test
// Security: Credential verification and non-specific failures (CWE-204)
// Expected: Correct password succeeds; wrong password, unknown email and inactive user all yield ErrInvalidCredentials.
// Test Case ID: IDN-01
func TestIdentity_Service_Authenticate(t *testing.T) {
	svc, repo, _, rec := newTestService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "tenant-1", "Owner@Wanderlust.example", "Owner", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "owner@wanderlust.example", user.Email)

	got, err := svc.Authenticate(ctx, "tenant-1", "OWNER@wanderlust.example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotNil(t, got.LastLoginAt)

	_, err = svc.Authenticate(ctx, "tenant-1", "owner@wanderlust.example", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "tenant-1", "nobody@wanderlust.example", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, repo.SetActive(ctx, user.ID, false))
	_, err = svc.Authenticate(ctx, "tenant-1", "owner@wanderlust.example", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, []string{
		audit.TypeUserCreated,
		audit.TypeLoginSuccess,
		audit.TypeLoginFailed,
		audit.TypeLoginFailed,
		audit.TypeLoginFailed,
	}, rec.Types())
}

// TestPurpose: Validates that a deactivated account costs a password hash like an unknown one.
// Scope: Unit Test
// Security: Account enumeration through response timing (CWE-208)
// Expected: Authenticating an inactive user fails generically after running the dummy bcrypt verification.
// Test Case ID: IDN-01b
func TestIdentity_Service_AuthenticateInactiveHashes(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "tenant-1", "owner@wanderlust.example", "Owner", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, repo.SetActive(ctx, user.ID, false))
	require.Empty(t, svc.dummy.Value)

	_, err = svc.Authenticate(ctx, "tenant-1", "owner@wanderlust.example", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, SchemeBcrypt, svc.dummy.Scheme)
	assert.NotEmpty(t, svc.dummy.Value)
}

// TestPurpose: Validates that email uniqueness is scoped per tenant.
// Scope: Unit Test
// Security: Tenant isolation
// Expected: The same email under two tenants yields two distinct users that authenticate independently.
// Test Case ID: IDN-02
func TestIdentity_Service_EmailScopedPerTenant(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, "tenant-a", "guide@example.com", "A", "password-a1")
	require.NoError(t, err)
	b, err := svc.CreateUser(ctx, "tenant-b", "guide@example.com", "B", "password-b1")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = svc.CreateUser(ctx, "tenant-a", "GUIDE@example.com", "dup", "password-a2")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Authenticate(ctx, "tenant-a", "guide@example.com", "password-b1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	got, err := svc.Authenticate(ctx, "tenant-b", "guide@example.com", "password-b1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

// TestPurpose: Validates the lazy migration from the legacy SHA-256 scheme to bcrypt on login.
// Scope: Unit Test
// Security: Weak hash retirement (CWE-916)
// Expected: Login with a legacy hash succeeds and the stored hash becomes bcrypt; the next login does not rehash.
// Test Case ID: IDN-03
func TestIdentity_Service_Authenticate_UpgradesLegacyHash(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &User{
		ID:           "user-legacy",
		TenantID:     "tenant-1",
		Email:        "legacy@example.com",
		PasswordHash: LegacySHA256("old-school-pw"),
		IsActive:     true,
	}))

	_, err := svc.Authenticate(ctx, "tenant-1", "legacy@example.com", "old-school-pw")
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, "user-legacy")
	require.NoError(t, err)
	assert.Equal(t, SchemeBcrypt, stored.PasswordHash.Scheme)
	assert.Equal(t, 1, repo.hashUpdates)

	_, err = svc.Authenticate(ctx, "tenant-1", "legacy@example.com", "old-school-pw")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.hashUpdates)
}

func TestIdentity_Service_Authenticate_UpgradeFailureStillLogsIn(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &User{
		ID: "u1", TenantID: "t1", Email: "l@example.com",
		PasswordHash: LegacySHA256("old-school-pw"), IsActive: true,
	}))
	repo.failUpdate = errors.New("db down")

	_, err := svc.Authenticate(ctx, "t1", "l@example.com", "old-school-pw")
	assert.NoError(t, err)
}

// TestPurpose: Validates that updating a password revokes every session of the user.
// Scope: Unit Test
// Security: Session invalidation on credential change (CWE-613)
// Expected: The new password works, the old one does not, and DeleteAllForUser was called for the user.
// Test Case ID: IDN-04
func TestIdentity_Service_UpdatePassword_RevokesSessions(t *testing.T) {
	svc, _, rev, rec := newTestService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "tenant-1", "owner@example.com", "Owner", "first-password")
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePassword(ctx, user.ID, "second-password"))
	assert.Equal(t, []string{user.ID}, rev.revoked)
	assert.Contains(t, rec.Types(), audit.TypePasswordChanged)

	_, err = svc.Authenticate(ctx, "tenant-1", "owner@example.com", "first-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "tenant-1", "owner@example.com", "second-password")
	assert.NoError(t, err)
}

func TestIdentity_Service_UpdatePassword_RevocationFailure(t *testing.T) {
	svc, _, rev, _ := newTestService()
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "tenant-1", "owner@example.com", "Owner", "first-password")
	require.NoError(t, err)

	rev.err = errors.New("db down")
	assert.Error(t, svc.UpdatePassword(ctx, user.ID, "second-password"))
}

func TestIdentity_Service_UpdatePassword_Weak(t *testing.T) {
	svc, _, rev, _ := newTestService()
	assert.ErrorIs(t, svc.UpdatePassword(context.Background(), "u", "short"), ErrWeakPassword)
	assert.ErrorIs(t, svc.UpdatePassword(context.Background(), "u", strings.Repeat("x", 73)), ErrWeakPassword)
	assert.Empty(t, rev.revoked)
}

func TestIdentity_Service_ChangePassword(t *testing.T) {
	svc, _, rev, _ := newTestService()
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "tenant-1", "owner@example.com", "Owner", "first-password")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "not-it-at-all", "second-password"), ErrInvalidCredentials)
	assert.Empty(t, rev.revoked)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "first-password", "second-password"))
	assert.Equal(t, []string{user.ID}, rev.revoked)
}

func TestIdentity_Service_Deactivate(t *testing.T) {
	svc, repo, rev, _ := newTestService()
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "tenant-1", "owner@example.com", "Owner", "first-password")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, user.ID))
	stored, _ := repo.GetByID(ctx, user.ID)
	assert.False(t, stored.IsActive)
	assert.Equal(t, []string{user.ID}, rev.revoked)

	assert.ErrorIs(t, svc.Deactivate(ctx, "missing"), ErrUserNotFound)
}

func TestIdentity_Service_CreateUser_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "t", "not-an-email", "x", "long-enough-pw")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.CreateUser(ctx, "t", "Name <a@b.co>", "x", "long-enough-pw")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.CreateUser(ctx, "t", "a@b.co", "x", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}
