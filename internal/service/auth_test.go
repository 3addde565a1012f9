package service

import (
	"context"
	"testing"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/repository/memrepo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapAdmin(t *testing.T) {
	users := memrepo.NewUsers()
	auth := NewAuthService(users, "secret", time.Hour)
	ctx := context.Background()

	require.NoError(t, auth.BootstrapAdmin(ctx, "initial-pass"))
	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NotEqual(t, "initial-pass", admin.PasswordHash)

	_, _, err = auth.Login(ctx, "admin", "initial-pass")
	require.NoError(t, err)

	// 已有使用者時不再建立
	require.NoError(t, auth.BootstrapAdmin(ctx, "other"))
	n, _ := users.Count(ctx)
	assert.Equal(t, int64(1), n)
}

func TestBootstrapAdmin_GeneratesPassword(t *testing.T) {
	users := memrepo.NewUsers()
	auth := NewAuthService(users, "secret", time.Hour)

	require.NoError(t, auth.BootstrapAdmin(context.Background(), ""))
	admin, err := users.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, admin.PasswordHash)
}

func TestLoginAndParse(t *testing.T) {
	users := memrepo.NewUsers()
	auth := NewAuthService(users, "secret", time.Hour)
	ctx := context.Background()

	viewer, err := auth.CreateUser(ctx, "ann", "correct horse", domain.RoleViewer)
	require.NoError(t, err)

	token, user, err := auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, viewer.ID, user.ID)

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, viewer.ID.Hex(), claims.Subject)
	assert.Equal(t, domain.RoleViewer, claims.Role)
	assert.Equal(t, "ann", claims.Username)

	stored, _ := users.GetByID(ctx, viewer.ID.Hex())
	assert.False(t, stored.LastLoginAt.IsZero())

	_, _, err = auth.Login(ctx, "ann", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	users := memrepo.NewUsers()
	auth := NewAuthService(users, "secret", time.Hour)
	ctx := context.Background()

	u, err := auth.CreateUser(ctx, "bob", "password1", domain.RoleManager)
	require.NoError(t, err)
	inactive := false
	_, err = auth.UpdateUser(ctx, "someone-else", u.ID.Hex(), UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "bob", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UsesStoredUser(t *testing.T) {
	users := memrepo.NewUsers()
	auth := NewAuthService(users, "secret", time.Hour)
	ctx := context.Background()

	u, err := auth.CreateUser(ctx, "carol", "password1", domain.RoleAdmin)
	require.NoError(t, err)
	token, _, err := auth.Login(ctx, "carol", "password1")
	require.NoError(t, err)

	viewer := domain.RoleViewer
	_, err = auth.UpdateUser(ctx, "someone-else", u.ID.Hex(), UserUpdate{Role: &viewer})
	require.NoError(t, err)
	claims, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, claims.Role)

	inactive := false
	_, err = auth.UpdateUser(ctx, "someone-else", u.ID.Hex(), UserUpdate{IsActive: &inactive})
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, auth.DeleteUser(ctx, "someone-else", u.ID.Hex()))
	_, err = auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 簽章正確但使用者不存在
	ghost, err := auth.issue(&domain.User{Username: "ghost", Role: domain.RoleAdmin}, time.Now())
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Rejects(t *testing.T) {
	auth := NewAuthService(memrepo.NewUsers(), "secret", time.Hour)
	user := &domain.User{Username: "x", Role: domain.RoleAdmin}

	expired, err := auth.issue(user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = auth.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(memrepo.NewUsers(), "another-secret", time.Hour)
	forged, err := other.issue(user, time.Now())
	require.NoError(t, err)
	_, err = auth.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: domain.RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "root"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.ParseToken(badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserManagementGuards(t *testing.T) {
	users := memrepo.NewUsers()
	auth := NewAuthService(users, "secret", time.Hour)
	ctx := context.Background()

	admin, err := auth.CreateUser(ctx, "root", "password1", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = auth.CreateUser(ctx, "root", "password1", domain.RoleViewer)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = auth.CreateUser(ctx, "guest", "password1", "guest")
	assert.ErrorIs(t, err, ErrInvalidRole)

	inactive := false
	_, err = auth.UpdateUser(ctx, admin.ID.Hex(), admin.ID.Hex(), UserUpdate{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrSelfModify)
	assert.ErrorIs(t, auth.DeleteUser(ctx, admin.ID.Hex(), admin.ID.Hex()), ErrSelfModify)

	role := domain.RoleManager
	pw := "new-password"
	updated, err := auth.UpdateUser(ctx, "other", admin.ID.Hex(), UserUpdate{Role: &role, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, updated.Role)
	_, _, err = auth.Login(ctx, "root", "new-password")
	assert.NoError(t, err)
}
