package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/aksara-hq/aksara-admin/internal/shared"
	"github.com/aksara-hq/aksara-admin/internal/users"
)

// Directory looks up accounts for authentication.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	GetUser(ctx context.Context, id int64) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	directory Directory
	tokens    *TokenManager
}

// NewService constructs a new Service.
func NewService(directory Directory, tokens *TokenManager) *Service {
	return &Service{directory: directory, tokens: tokens}
}

func toAccount(u users.User) Account {
	return Account{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		RoleID:       u.RoleID,
		IsActive:     u.IsActive,
	}
}

// Login validates credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (Account, TokenPair, error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return Account{}, TokenPair{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return Account{}, TokenPair{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Account{}, TokenPair{}, shared.ErrInvalidCredentials
	}
	account := toAccount(user)
	pair, err := s.tokens.Issue(ctx, account)
	if err != nil {
		return Account{}, TokenPair{}, err
	}
	return account, pair, nil
}

// Refresh rotates a refresh token into a fresh pair. The account is re-read
// so a role change or deactivation takes effect at rotation time.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Account, TokenPair, error) {
	userID, err := s.tokens.Redeem(ctx, refreshToken)
	if err != nil {
		return Account{}, TokenPair{}, err
	}
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return Account{}, TokenPair{}, shared.ErrTokenInvalid
	}
	if !user.IsActive {
		return Account{}, TokenPair{}, shared.ErrTokenInvalid
	}
	account := toAccount(user)
	pair, err := s.tokens.Issue(ctx, account)
	if err != nil {
		return Account{}, TokenPair{}, err
	}
	return account, pair, nil
}

// Logout revokes the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// Profile returns the account behind a principal.
func (s *Service) Profile(ctx context.Context, userID int64) (Account, error) {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	return toAccount(user), nil
}

// VerifyAccess validates an access token string.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.tokens.Verify(tokenString)
}
