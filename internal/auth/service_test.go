package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aksara-hq/aksara-admin/internal/shared"
	"github.com/aksara-hq/aksara-admin/internal/users"
)

type stubDirectory struct {
	accounts map[int64]users.User
}

func (d *stubDirectory) FindByEmail(ctx context.Context, email string) (users.User, error) {
	for _, u := range d.accounts {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

func (d *stubDirectory) GetUser(ctx context.Context, id int64) (users.User, error) {
	u, ok := d.accounts[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T, accessTTL time.Duration) (*Service, *stubDirectory) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	require.NoError(t, err)

	directory := &stubDirectory{accounts: map[int64]users.User{
		7: {
			ID:           7,
			Email:        "admin@aksara.local",
			Name:         "Admin Aksara",
			PasswordHash: string(hash),
			RoleID:       2,
			IsActive:     true,
		},
	}}
	tokens := NewTokenManager("kunci-rahasia", "aksara-admin", accessTTL, time.Hour, client)
	return NewService(directory, tokens), directory
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	account, pair, err := svc.Login(ctx, "admin@aksara.local", "rahasia123")
	require.NoError(t, err)
	require.EqualValues(t, 7, account.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.EqualValues(t, 7, claims.UserID)
	require.EqualValues(t, 2, claims.RoleID)
	require.Equal(t, "admin@aksara.local", claims.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, directory := newTestService(t, time.Minute)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "admin@aksara.local", "salah")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "tidakada@aksara.local", "rahasia123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	account := directory.accounts[7]
	account.IsActive = false
	directory.accounts[7] = account
	_, _, err = svc.Login(ctx, "admin@aksara.local", "rahasia123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc, _ := newTestService(t, -time.Minute)
	_, pair, err := svc.Login(context.Background(), "admin@aksara.local", "rahasia123")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, shared.ErrTokenExpired)
}

func TestVerifyForeignToken(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	other, _ := newTestService(t, time.Minute)

	_, pair, err := other.Login(context.Background(), "admin@aksara.local", "rahasia123")
	require.NoError(t, err)

	// Same secret and issuer, so cross verification passes.
	_, err = svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)

	// Garbage never does.
	_, err = svc.VerifyAccess("bukan.token.jwt")
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshRotatesAndBlocksReplay(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "admin@aksara.local", "rahasia123")
	require.NoError(t, err)

	_, rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed token is gone.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshPicksUpDeactivation(t *testing.T) {
	svc, directory := newTestService(t, time.Minute)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "admin@aksara.local", "rahasia123")
	require.NoError(t, err)

	account := directory.accounts[7]
	account.IsActive = false
	directory.accounts[7] = account

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	svc, directory := newTestService(t, time.Minute)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "admin@aksara.local", "rahasia123")
	require.NoError(t, err)

	account := directory.accounts[7]
	account.RoleID = 9
	directory.accounts[7] = account

	_, rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.VerifyAccess(rotated.AccessToken)
	require.NoError(t, err)
	require.EqualValues(t, 9, claims.RoleID)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "admin@aksara.local", "rahasia123")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}
