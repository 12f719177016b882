package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aksara-hq/aksara-admin/internal/shared"
)

// Claims carries the identity baked into access tokens. RoleID rides along so
// the access engine can resolve permissions without a user lookup per request.
type Claims struct {
	UserID int64  `json:"uid"`
	RoleID int64  `json:"rid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies JWT access tokens and Redis backed
// refresh tokens. Refresh tokens rotate on every use.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	client     *redis.Client
}

// NewTokenManager builds TokenManager instance.
func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration, client *redis.Client) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		client:     client,
	}
}

func refreshKey(token string) string {
	return "auth:refresh:" + token
}

// Issue mints an access/refresh token pair for the account.
func (m *TokenManager) Issue(ctx context.Context, account Account) (TokenPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(m.accessTTL)
	claims := Claims{
		UserID: account.ID,
		RoleID: account.RoleID,
		Email:  account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", account.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return TokenPair{}, err
	}

	refresh := uuid.NewString()
	refreshExp := now.Add(m.refreshTTL)
	if err := m.client.Set(ctx, refreshKey(refresh), account.ID, m.refreshTTL).Err(); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify parses and validates an access token.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, shared.ErrTokenInvalid
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrTokenExpired
		}
		return nil, shared.ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, shared.ErrTokenInvalid
	}
	return claims, nil
}

// Redeem consumes a refresh token and returns the user id it belongs to.
// The token is deleted atomically so replays fail.
func (m *TokenManager) Redeem(ctx context.Context, refresh string) (int64, error) {
	userID, err := m.client.GetDel(ctx, refreshKey(refresh)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, shared.ErrTokenInvalid
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Revoke drops a refresh token, ending the session.
func (m *TokenManager) Revoke(ctx context.Context, refresh string) error {
	return m.client.Del(ctx, refreshKey(refresh)).Err()
}
