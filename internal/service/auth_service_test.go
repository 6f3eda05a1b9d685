package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"
	"inkwell/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc    *AuthService
	tokens *auth.TokenManager
	revoke *cache.RevocationStore
	mr     *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:   "test-secret-that-is-long-enough-123",
		Issuer:   "inkwell-api",
		Audience: "inkwell-client",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	revoke := cache.NewRevocationStore(rdb)
	svc := NewAuthService(
		repository.NewUserRepository(testutil.NewSQLiteDB(t)),
		auth.NewHasher(4),
		tokens,
		cache.New(rdb),
		revoke,
	)
	return &authFixture{svc: svc, tokens: tokens, revoke: revoke, mr: mr}
}

func TestAuthService_RegisterLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, RegisterInput{Email: " a@b.c ", FullName: "Ann", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", reg.Email)
	assert.NotEmpty(t, reg.Token)

	login, err := f.svc.Login(ctx, LoginInput{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, login.ID)

	claims, err := f.tokens.Verify(login.Token)
	require.NoError(t, err)
	sub, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, reg.ID, sub)

	body, err := json.Marshal(login)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "passwordHash")
	assert.NotContains(t, string(body), "$2a$")
	assert.Contains(t, string(body), `"token":`)
	assert.Contains(t, string(body), `"fullName":"Ann"`)

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@b.c", Password: "wrong-password"})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.Equal(t, models.MsgBadCredentials, err.Error())
}

func TestAuthService_RegisterErrors(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Email: "dup@example.com", FullName: "First", Password: "secret"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      RegisterInput
		code    string
		message string
	}{
		{"Bad email", RegisterInput{Email: "nope", FullName: "Ann", Password: "secret"}, models.CodeValidation, validation.ErrEmailFormat.Error()},
		{"Short password", RegisterInput{Email: "x@example.com", FullName: "Ann", Password: "1234"}, models.CodeValidation, validation.ErrPasswordShort.Error()},
		{"Short name", RegisterInput{Email: "x@example.com", FullName: "An", Password: "secret"}, models.CodeValidation, validation.ErrFullName.Error()},
		{"Bad avatar", RegisterInput{Email: "x@example.com", FullName: "Ann", Password: "secret", AvatarURL: "avatar.png"}, models.CodeValidation, validation.ErrAvatarURL.Error()},
		{"Duplicate email", RegisterInput{Email: "dup@example.com", FullName: "Second", Password: "secret"}, models.CodeDuplicateContent, models.MsgDuplicateEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.code, models.ErrorCode(err))
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestAuthService_LoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.Equal(t, models.MsgUserNotFound, err.Error())
}

func TestAuthService_MeIsCached(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, RegisterInput{Email: "me@example.com", FullName: "Meg", Password: "secret", AvatarURL: "https://img.example.com/meg.png"})
	require.NoError(t, err)

	me, err := f.svc.Me(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meg", me.FullName)
	assert.Equal(t, "https://img.example.com/meg.png", me.AvatarURL)
	assert.Empty(t, me.PasswordHash)
	assert.True(t, f.mr.Exists(cache.UserKey(reg.ID)))

	_, err = f.svc.Me(ctx, 424242)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, RegisterInput{Email: "out@example.com", FullName: "Otto", Password: "secret"})
	require.NoError(t, err)
	claims, err := f.tokens.Verify(reg.Token)
	require.NoError(t, err)

	_, err = f.svc.Me(ctx, reg.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims))

	revoked, err := f.revoke.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.False(t, f.mr.Exists(cache.UserKey(reg.ID)))

	ttl := f.mr.TTL(cache.RevokedTokenKey(claims.ID))
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}
