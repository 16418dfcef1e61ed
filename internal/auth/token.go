package auth

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"GuardianSOS/pkg/cache"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrTokenRevoked = stderrors.New("token revoked")

// Claims 访问令牌载荷
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens. Revoked token ids are
// kept in the cache until the token would have expired anyway.
type TokenManager struct {
	secret  []byte
	expire  time.Duration
	revoked cache.Cache
	now     func() time.Time
}

func NewTokenManager(secret string, expire time.Duration, revoked cache.Cache) *TokenManager {
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), expire: expire, revoked: revoked, now: time.Now}
}

func (m *TokenManager) Issue(userID uint, username string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if m.revoked != nil && claims.ID != "" && m.revoked.Exists(ctx, revokedKey(claims.ID)) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke 注销令牌，有效期与令牌剩余时间一致
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.revoked == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := claims.ExpiresAt.Sub(m.now()); left > 0 {
			ttl = left
		}
	}
	return m.revoked.Set(ctx, revokedKey(claims.ID), true, ttl)
}

func revokedKey(id string) string { return "jwt:revoked:" + id }
