package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aksara-hq/aksara-admin/internal/shared"
)

type memRepo struct {
	users  map[int64]User
	nextID int64
	counts map[int64]int64
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]User{}, counts: map[int64]int64{}}
}

func (m *memRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *memRepo) CreateUser(ctx context.Context, user User) (User, error) {
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memRepo) UpdateUser(ctx context.Context, user User) (User, error) {
	existing, ok := m.users[user.ID]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	user.PasswordHash = existing.PasswordHash
	m.users[user.ID] = user
	return user, nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memRepo) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	return m.counts[roleID], nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "staf@aksara.local", "Staf", "rahasia123", 4)
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.NotEqual(t, "rahasia123", created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("rahasia123")))
}

func TestChangePasswordStoresNewHash(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "staf@aksara.local", "Staf", "lama12345", 4)
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, created.ID, "baru12345"))
	stored, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("baru12345")))
	require.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("lama12345")))
}

func TestUpdateUserKeepsPasswordHash(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "staf@aksara.local", "Staf", "rahasia123", 4)
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, created.ID, "staf@aksara.local", "Staf Baru", 3, false)
	require.NoError(t, err)
	require.Equal(t, "Staf Baru", updated.Name)
	require.EqualValues(t, 3, updated.RoleID)
	require.False(t, updated.IsActive)

	stored, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("rahasia123")))
}

func TestHasUsersReflectsRoleCount(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	has, err := svc.HasUsers(ctx, 4)
	require.NoError(t, err)
	require.False(t, has)

	repo.counts[4] = 2
	has, err = svc.HasUsers(ctx, 4)
	require.NoError(t, err)
	require.True(t, has)

	count, err := svc.UserCountForRole(ctx, 4)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
