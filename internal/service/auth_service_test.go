package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/security"
	"github.com/ldotspots/zuco-motors/internal/session"
)

func TestRegisterAssignsSequentialIDsPerRole(t *testing.T) {
	f := newFixture(t)

	b1 := f.register(t, "one@example.co.nz", models.UserRoleBuyer)
	b2 := f.register(t, "two@example.co.nz", "")
	d1 := f.register(t, "dealer@example.co.nz", models.UserRoleDealer)

	assert.Equal(t, "USR001", b1.ID)
	assert.Equal(t, "USR002", b2.ID)
	assert.Equal(t, models.UserRoleBuyer, b2.Role)
	assert.Equal(t, "DLR001", d1.ID)

	assert.InDelta(t, 0.03, d1.CommissionRate, 1e-9)
	assert.Equal(t, "Sales", d1.Profile.Department)
	assert.Equal(t, "Robert Chen", d1.Profile.Supervisor)
	assert.InDelta(t, 150000, d1.Profile.SalesTarget, 1e-9)
	assert.Zero(t, d1.Profile.YTDSales)

	require.NotNil(t, b1.Profile.NotificationPrefs)
	assert.True(t, b1.Profile.NotificationPrefs.Email)
	assert.NotEqual(t, "Str0ng#Pass", string(b1.PasswordHash))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "taken@example.co.nz", models.UserRoleBuyer)

	_, err := f.auth.Register(f.ctx, RegisterInput{Email: "TAKEN@Example.co.nz", Password: "An0ther#Pass"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	users, err := f.users.List(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(f.ctx, RegisterInput{Email: "weak@example.co.nz", Password: "password"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = f.auth.Register(f.ctx, RegisterInput{Email: "not an email", Password: "Str0ng#Pass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.auth.Register(f.ctx, RegisterInput{Email: "x@example.co.nz", Password: "Str0ng#Pass", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)

	_, err := f.auth.Login(f.ctx, "c1", "nobody@example.co.nz", "Str0ng#Pass", false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.auth.Login(f.ctx, "c1", "buyer@example.co.nz", "wrong", false)
	assert.ErrorIs(t, err, ErrInvalidCredential)

	res, err := f.auth.Login(f.ctx, "c1", "BUYER@example.co.nz", "Str0ng#Pass", false)
	require.NoError(t, err)
	assert.Equal(t, session.NamespaceBuyer, res.Namespace)
	assert.Equal(t, "c1", res.ClientID)
	assert.Equal(t, f.clock.Now().Add(8*time.Hour), res.Session.ExpiresAt)

	_, ok, err := f.sessions.Get(f.ctx, "c1", session.ScopeShort, session.NamespaceBuyer)
	require.NoError(t, err)
	assert.True(t, ok)
	remembered, err := f.sessions.Remembered(f.ctx, "c1")
	require.NoError(t, err)
	assert.False(t, remembered)

	claims, err := security.ParseSessionTokenAt(res.Token, f.cfg.Security.JWTSecret, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, "USR001", claims.UserID)
	assert.Equal(t, "c1", claims.ClientID)
	assert.Equal(t, session.NamespaceBuyer, claims.Namespace)

	u, err := f.users.GetByID(f.ctx, "USR001")
	require.NoError(t, err)
	assert.True(t, f.clock.Now().Equal(u.LastLogin))
}

func TestLoginRememberedUsesLongScope(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dealer@example.co.nz", models.UserRoleDealer)

	res, err := f.auth.Login(f.ctx, "", "dealer@example.co.nz", "Str0ng#Pass", true)
	require.NoError(t, err)
	require.NotEmpty(t, res.ClientID)
	assert.Equal(t, f.clock.Now().Add(30*24*time.Hour), res.Session.ExpiresAt)

	_, ok, err := f.sessions.Get(f.ctx, res.ClientID, session.ScopeLong, session.NamespaceDealer)
	require.NoError(t, err)
	assert.True(t, ok)
	remembered, err := f.sessions.Remembered(f.ctx, res.ClientID)
	require.NoError(t, err)
	assert.True(t, remembered)
}

func TestExpiredSessionLogsOut(t *testing.T) {
	f := newFixture(t)
	f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	f.register(t, "dealer@example.co.nz", models.UserRoleDealer)
	_, err := f.auth.Login(f.ctx, "c1", "buyer@example.co.nz", "Str0ng#Pass", false)
	require.NoError(t, err)
	_, err = f.auth.Login(f.ctx, "c1", "dealer@example.co.nz", "Str0ng#Pass", true)
	require.NoError(t, err)
	agent := models.Session{UserID: "AGT001", Role: models.UserRoleSalesAgent, ExpiresAt: f.clock.Now().Add(time.Hour)}
	require.NoError(t, f.sessions.Put(f.ctx, "c1", session.ScopeShort, session.NamespaceAgent, agent))

	f.clock.Advance(7*time.Hour + 59*time.Minute)
	ok, err := f.auth.IsAuthenticated(f.ctx, "c1", PortalBuyer)
	require.NoError(t, err)
	assert.True(t, ok)

	f.clock.Advance(2 * time.Minute)
	ok, err = f.auth.IsAuthenticated(f.ctx, "c1", PortalBuyer)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, scope := range []session.Scope{session.ScopeShort, session.ScopeLong} {
		for _, ns := range []string{session.NamespaceBuyer, session.NamespaceDealer, session.NamespaceAgent} {
			_, stored, err := f.sessions.Get(f.ctx, "c1", scope, ns)
			require.NoError(t, err)
			assert.False(t, stored, "%s %s", scope, ns)
		}
	}
	remembered, err := f.sessions.Remembered(f.ctx, "c1")
	require.NoError(t, err)
	assert.False(t, remembered)
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)

	res, err := f.auth.RequireAuth(f.ctx, "c1", PortalDealer, models.UserRoleDealer)
	require.NoError(t, err)
	assert.Equal(t, AuthUnauthenticated, res.Status)
	assert.Equal(t, "/dealer-portal/login.html", res.Redirect)

	_, err = f.auth.Login(f.ctx, "c1", "buyer@example.co.nz", "Str0ng#Pass", false)
	require.NoError(t, err)

	// a shared page finds the buyer session by scanning namespaces
	res, err = f.auth.RequireAuth(f.ctx, "c1", PortalNone, models.UserRoleDealer)
	require.NoError(t, err)
	assert.Equal(t, AuthWrongRole, res.Status)
	assert.Equal(t, UnauthorizedPath, res.Redirect)

	res, err = f.auth.RequireAuth(f.ctx, "c1", PortalBuyer, models.UserRoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, AuthAuthenticated, res.Status)
	assert.Equal(t, "USR001", res.Session.UserID)

	res, err = f.auth.RequireAuth(f.ctx, "c1", PortalSales)
	require.NoError(t, err)
	assert.Equal(t, AuthUnauthenticated, res.Status)
	assert.Equal(t, "/sales-portal/login.html", res.Redirect)
}

func TestRolesSignedInSideBySide(t *testing.T) {
	f := newFixture(t)
	f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	f.register(t, "dealer@example.co.nz", models.UserRoleDealer)

	_, err := f.auth.Login(f.ctx, "c1", "buyer@example.co.nz", "Str0ng#Pass", false)
	require.NoError(t, err)
	_, err = f.auth.Login(f.ctx, "c1", "dealer@example.co.nz", "Str0ng#Pass", true)
	require.NoError(t, err)

	ok, err := f.auth.HasRole(f.ctx, "c1", PortalDealer, models.UserRoleDealer)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.auth.Logout(f.ctx, "c1", PortalDealer))

	ok, err = f.auth.IsAuthenticated(f.ctx, "c1", PortalDealer)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.auth.IsAuthenticated(f.ctx, "c1", PortalBuyer)
	require.NoError(t, err)
	assert.True(t, ok)
	remembered, err := f.sessions.Remembered(f.ctx, "c1")
	require.NoError(t, err)
	assert.False(t, remembered)
}

func TestUpdateProfileRefreshesSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	_, err := f.auth.Login(f.ctx, "c1", "buyer@example.co.nz", "Str0ng#Pass", true)
	require.NoError(t, err)

	name := "Aroha"
	u, err := f.auth.UpdateProfile(f.ctx, "c1", PortalBuyer, ProfilePatch{
		FirstName: &name,
		Profile: map[string]any{
			"address":           "1 Queen St, Auckland",
			"notificationPrefs": map[string]any{"email": false, "sms": true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Queen St, Auckland", u.Profile.Address)
	require.NotNil(t, u.Profile.NotificationPrefs)
	assert.True(t, u.Profile.NotificationPrefs.SMS)

	sess, ok, err := f.sessions.Get(f.ctx, "c1", session.ScopeLong, session.NamespaceBuyer)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aroha", sess.FirstName)

	_, err = f.auth.UpdateProfile(f.ctx, "c1", PortalBuyer, ProfilePatch{Profile: map[string]any{"ytdSales": 1}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.auth.UpdateProfile(f.ctx, "c1", PortalBuyer, ProfilePatch{Profile: map[string]any{"shoeSize": 9}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdatePassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	_, err := f.auth.Login(f.ctx, "c1", "buyer@example.co.nz", "Str0ng#Pass", false)
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.UpdatePassword(f.ctx, "c1", PortalBuyer, "wrong", "N3w#Password"), ErrInvalidCredential)
	assert.ErrorIs(t, f.auth.UpdatePassword(f.ctx, "c1", PortalBuyer, "Str0ng#Pass", "short"), ErrWeakPassword)
	require.NoError(t, f.auth.UpdatePassword(f.ctx, "c1", PortalBuyer, "Str0ng#Pass", "N3w#Password"))

	_, err = f.auth.Login(f.ctx, "c2", "buyer@example.co.nz", "N3w#Password", false)
	assert.NoError(t, err)
}

func TestUsersByRole(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dealer@zucomotors.co.nz", models.UserRoleDealer)
	f.register(t, "b1@example.co.nz", models.UserRoleBuyer)
	f.register(t, "b2@example.co.nz", models.UserRoleBuyer)

	buyers, err := f.auth.Users(f.ctx, models.UserRoleBuyer)
	require.NoError(t, err)
	assert.Len(t, buyers, 2)

	all, err := f.auth.Users(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.auth.Users(f.ctx, "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
