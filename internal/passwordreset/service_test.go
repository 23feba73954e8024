package passwordreset_test

import (
	"context"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/mail"
	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/store/memory"
	"github.com/finestafrica/agencyedge/internal/tenant"
	"github.com/finestafrica/agencyedge/internal/token"
)

var epoch = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	resets   *passwordreset.Service
	sessions *session.Service
	ids      *identity.Service
	outbox   *mail.Outbox
	audit    *audit.Recorder
	clock    *clock.Mock
	agency   *tenant.Tenant
	other    *tenant.Tenant
	user     *identity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	agency := &tenant.Tenant{ID: "tenant-1", Name: "Wanderlust Safaris", Subdomain: "wanderlust", CreatedAt: epoch}
	other := &tenant.Tenant{ID: "tenant-2", Name: "Dune Tours", Subdomain: "dunetours", CreatedAt: epoch}
	require.NoError(t, store.Tenants().Create(ctx, agency))
	require.NoError(t, store.Tenants().Create(ctx, other))

	hasher, err := token.NewHasher("test-secret-0123456789")
	require.NoError(t, err)
	mock := clock.NewMock()
	mock.Set(epoch)

	rec := &audit.Recorder{}
	sessions := session.NewService(store.Sessions(), hasher, 0, session.WithClock(mock))
	ids := identity.NewService(store.Users(), identity.NewPasswordHasher(bcrypt.MinCost), sessions, rec)
	user, err := ids.CreateUser(ctx, agency.ID, "owner@wanderlust.example", "Amina", "first-password")
	require.NoError(t, err)

	outbox := &mail.Outbox{}
	resets := passwordreset.NewService(store.ResetTokens(), hasher, ids, outbox, rec, passwordreset.Config{
		Lifetime:   time.Hour,
		Scheme:     "https",
		RootDomain: "finestafrica.ai",
		PagePath:   "/reset-password",
	}, passwordreset.WithClock(mock))

	return &fixture{
		store: store, resets: resets, sessions: sessions, ids: ids, outbox: outbox,
		audit: rec, clock: mock, agency: agency, other: other, user: user,
	}
}

// TestPurpose: Validates the single-active-token invariant.
// Scope: Unit Test
// Security: Credential recovery (CWE-640)
// Expected: After two issues only the second token validates.
// Test Case ID: RST-01
func TestReset_Issue_SingleActiveToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)
	b, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	_, err = f.resets.Validate(ctx, a)
	assert.ErrorIs(t, err, passwordreset.ErrInvalidToken)
	userID, err := f.resets.Validate(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, userID)
}

// TestPurpose: Validates that validation is read-only, tokens expire and consumption is single-use.
// Scope: Unit Test
// Security: Credential recovery (CWE-640)
// Expected: Repeated validation succeeds; consumed or expired tokens are ErrInvalidToken.
// Test Case ID: RST-02
func TestReset_ValidateConsumeExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.resets.Validate(ctx, raw)
		require.NoError(t, err)
	}

	require.NoError(t, f.resets.Consume(ctx, raw))
	_, err = f.resets.Validate(ctx, raw)
	assert.ErrorIs(t, err, passwordreset.ErrInvalidToken)
	assert.ErrorIs(t, f.resets.Consume(ctx, raw), passwordreset.ErrInvalidToken)

	expiring, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)
	f.clock.Set(epoch.Add(time.Hour - time.Microsecond))
	_, err = f.resets.Validate(ctx, expiring)
	require.NoError(t, err)
	f.clock.Set(epoch.Add(time.Hour))
	_, err = f.resets.Validate(ctx, expiring)
	assert.ErrorIs(t, err, passwordreset.ErrInvalidToken)

	_, err = f.resets.Validate(ctx, "")
	assert.ErrorIs(t, err, passwordreset.ErrInvalidToken)
}

func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()
	link := regexp.MustCompile(`https://\S+`).FindString(body)
	require.NotEmpty(t, link, "reset link in body")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wanderlust.finestafrica.ai", u.Host)
	assert.Equal(t, "/reset-password", u.Path)
	return u.Query().Get("token")
}

// TestPurpose: Validates the forgot-password flow end to end, including re-requests.
// Scope: Unit Test
// Security: Credential recovery (CWE-640)
// Expected: Token A from the first email is invalid after the second request; token B validates.
// Test Case ID: RST-03
func TestReset_RequestReset_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.resets.RequestReset(ctx, f.agency, "Owner@Wanderlust.example", session.ClientMeta{}))
	require.NoError(t, f.resets.RequestReset(ctx, f.agency, "owner@wanderlust.example", session.ClientMeta{}))

	msgs := f.outbox.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "owner@wanderlust.example", msgs[0].To)
	assert.Contains(t, msgs[0].Subject, "Wanderlust Safaris")

	a := resetTokenFrom(t, msgs[0].Body)
	b := resetTokenFrom(t, msgs[1].Body)

	_, err := f.resets.Validate(ctx, a)
	assert.ErrorIs(t, err, passwordreset.ErrInvalidToken)
	_, err = f.resets.Validate(ctx, b)
	assert.NoError(t, err)
}

// TestPurpose: Validates that unknown emails get the same silent success as known ones.
// Scope: Unit Test
// Security: User enumeration (CWE-204)
// Expected: No error, no email, no token; emails scoped to another agency are unknown too.
// Test Case ID: RST-04
func TestReset_RequestReset_UnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.resets.RequestReset(ctx, f.agency, "nobody@example.com", session.ClientMeta{}))
	assert.NoError(t, f.resets.RequestReset(ctx, f.other, "owner@wanderlust.example", session.ClientMeta{}))
	assert.Empty(t, f.outbox.Messages())
}

// TestPurpose: Validates password reset: new password works, sessions are revoked, the token is consumed.
// Scope: Unit Test
// Security: Session invalidation on credential change (CWE-613)
// Expected: Old sessions invalid, token invalid afterwards, login with the new password succeeds.
// Test Case ID: RST-05
func TestReset_ResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sessionToken, _, err := f.sessions.Create(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)
	raw, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, f.resets.ResetPassword(ctx, f.agency.ID, raw, "second-password"))

	_, err = f.sessions.Validate(ctx, sessionToken)
	assert.ErrorIs(t, err, session.ErrSessionInvalid)
	_, err = f.resets.Validate(ctx, raw)
	assert.ErrorIs(t, err, passwordreset.ErrInvalidToken)
	_, err = f.ids.Authenticate(ctx, f.agency.ID, "owner@wanderlust.example", "second-password")
	assert.NoError(t, err)
	assert.Contains(t, f.audit.Types(), audit.TypePasswordResetCompleted)

	assert.ErrorIs(t, f.resets.ResetPassword(ctx, f.agency.ID, raw, "third-password"), passwordreset.ErrInvalidToken)
}

// TestPurpose: Validates that a rejected new password leaves the token usable.
// Scope: Unit Test
// Expected: ErrWeakPassword, and the token still validates.
// Test Case ID: RST-06
func TestReset_ResetPassword_FailedUpdateKeepsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	assert.ErrorIs(t, f.resets.ResetPassword(ctx, f.agency.ID, raw, "short"), identity.ErrWeakPassword)
	_, err = f.resets.Validate(ctx, raw)
	assert.NoError(t, err)
}

// TestPurpose: Validates that a token cannot be redeemed through another agency.
// Scope: Unit Test
// Security: Tenant isolation
// Expected: ErrInvalidToken and the token stays usable for its own agency.
// Test Case ID: RST-07
func TestReset_ResetPassword_CrossTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.resets.Issue(ctx, f.user.ID, 0, session.ClientMeta{})
	require.NoError(t, err)

	assert.ErrorIs(t, f.resets.ResetPassword(ctx, f.other.ID, raw, "second-password"), passwordreset.ErrInvalidToken)
	_, err = f.resets.Validate(ctx, raw)
	assert.NoError(t, err)
}

func TestReset_CleanupExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.resets.Issue(ctx, f.user.ID, time.Minute, session.ClientMeta{})
	require.NoError(t, err)
	f.clock.Add(time.Minute)

	n, err := f.resets.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
