package users

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	DeleteUser(ctx context.Context, id int64) error
	CountByRole(ctx context.Context, roleID int64) (int64, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a single user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// FindByEmail returns a user by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// CreateUser hashes the password and stores the new account.
func (s *Service) CreateUser(ctx context.Context, email, name, password string, roleID int64) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		RoleID:       roleID,
		IsActive:     true,
	})
}

// UpdateUser updates profile fields and role assignment.
func (s *Service) UpdateUser(ctx context.Context, id int64, email, name string, roleID int64, isActive bool) (User, error) {
	return s.repo.UpdateUser(ctx, User{ID: id, Email: email, Name: name, RoleID: roleID, IsActive: isActive})
}

// ChangePassword hashes and stores a new password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// HasUsers reports whether any user is assigned to the role. Satisfies the
// access engine's role-delete guard.
func (s *Service) HasUsers(ctx context.Context, roleID int64) (bool, error) {
	count, err := s.repo.CountByRole(ctx, roleID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UserCountForRole returns how many users hold the role.
func (s *Service) UserCountForRole(ctx context.Context, roleID int64) (int64, error) {
	return s.repo.CountByRole(ctx, roleID)
}
