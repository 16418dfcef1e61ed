package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GuardianSOS/internal/testutil"
	"GuardianSOS/pkg/cache"
	"GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens() *TokenManager {
	return NewTokenManager("test-secret", time.Hour, cache.NewLocalCache(cache.LocalConfig{}))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	tm := newTokens()
	raw, err := tm.Issue(7, "kim")
	require.NoError(t, err)

	claims, err := tm.Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "kim", claims.Username)
	assert.Equal(t, "7", claims.Subject)

	other := NewTokenManager("other-secret", time.Hour, nil)
	_, err = other.Parse(context.Background(), raw)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	tm := newTokens()
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := tm.Issue(1, "old")
	require.NoError(t, err)
	tm.now = time.Now
	_, err = tm.Parse(context.Background(), raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRevoke(t *testing.T) {
	tm := newTokens()
	raw, _ := tm.Issue(1, "kim")
	claims, err := tm.Parse(context.Background(), raw)
	require.NoError(t, err)

	require.NoError(t, tm.Revoke(context.Background(), claims))
	_, err = tm.Parse(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRequiredMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tm := newTokens()
	r := gin.New()
	r.GET("/me", Required(tm, nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint(middleware.CtxUserID), "name": c.GetString(middleware.CtxUsername)})
	})

	do := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Basic abc").Code)

	raw, _ := tm.Issue(3, "lee")
	w := do("Bearer " + raw)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":3,"name":"lee"}`, w.Body.String())
}

func TestSignupAndLogin(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, newTokens())
	ctx := context.Background()

	req := SignupRequest{
		Username:    "kim",
		Password:    "password1",
		Email:       "kim@example.com",
		Name:        "김철수",
		PhoneNumber: "010-1234-5678",
		DeviceID:    "dev-1",
	}
	u, err := svc.Signup(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, "password1", u.PasswordHash)
	require.NotNil(t, u.DeviceID)
	assert.Equal(t, "dev-1", *u.DeviceID)

	dup := req
	_, err = svc.Signup(ctx, dup)
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, "이미 사용 중인 사용자명입니다", errors.GetMessage(err))

	dup.Username = "kim2"
	_, err = svc.Signup(ctx, dup)
	assert.Equal(t, "이미 사용 중인 이메일입니다", errors.GetMessage(err))

	dup.Email = "kim2@example.com"
	_, err = svc.Signup(ctx, dup)
	assert.Equal(t, "이미 등록된 장치 ID입니다", errors.GetMessage(err))

	dup.DeviceID = ""
	_, err = svc.Signup(ctx, dup)
	require.NoError(t, err, "device id is optional at signup")

	jwtResp, err := svc.Login(ctx, LoginRequest{UsernameOrEmail: "kim@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", jwtResp.Type)
	assert.Equal(t, u.ID, jwtResp.ID)
	assert.Equal(t, "김철수", jwtResp.Name)

	claims, err := svc.Tokens().Parse(ctx, jwtResp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "kim", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, errors.HTTPStatus(err))
	assert.Equal(t, "아이디 또는 비밀번호가 올바르지 않습니다", errors.GetMessage(err))
	_, err = svc.Login(ctx, LoginRequest{UsernameOrEmail: "nobody", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, errors.HTTPStatus(err))

	me, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "kim", me.Username)
	_, err = svc.Me(ctx, 999)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, svc.Logout(ctx, claims))
	_, err = svc.Tokens().Parse(ctx, jwtResp.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
