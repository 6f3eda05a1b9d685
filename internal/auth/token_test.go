package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{
		Secret:   "test-secret-that-is-long-enough-123",
		Issuer:   "inkwell-api",
		Audience: "inkwell-client",
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{TTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenManager(TokenConfig{Secret: "s"})
	assert.Error(t, err)
}

func TestTokenManager_IssueVerify(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue(42, 0)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	sub, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), sub)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "inkwell-api", claims.Issuer)
}

func TestTokenManager_WideSubject(t *testing.T) {
	if ^uint(0) == uint(^uint32(0)) {
		t.Skip("uint is 32 bits on this platform")
	}
	m := newTestManager(t)
	id := uint(1)
	id <<= 40

	token, err := m.Issue(id, 0)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	sub, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, id, sub)
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Issue(1, 0)
	require.NoError(t, err)
	b, err := m.Issue(1, 0)
	require.NoError(t, err)

	ca, err := m.Verify(a)
	require.NoError(t, err)
	cb, err := m.Verify(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestTokenManager_Expired(t *testing.T) {
	m := newTestManager(t)
	issuedAt := time.Now()
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(7, time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(30 * time.Second) }
	_, err = m.Verify(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManager_Invalid(t *testing.T) {
	m := newTestManager(t)

	other, err := NewTokenManager(TokenConfig{
		Secret:   "a-completely-different-signing-secret",
		Issuer:   "inkwell-api",
		Audience: "inkwell-client",
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	foreign, err := other.Issue(1, 0)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenManager(TokenConfig{
		Secret:   "test-secret-that-is-long-enough-123",
		Issuer:   "someone-else",
		Audience: "inkwell-client",
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	badIss, err := wrongIssuer.Issue(1, 0)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "inkwell-api",
		Audience:  jwt.ClaimStrings{"inkwell-client"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	good, err := m.Issue(1, 0)
	require.NoError(t, err)
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := map[string]string{
		"foreign secret":   foreign,
		"wrong issuer":     badIss,
		"alg none":         noneToken,
		"garbage":          "not.a.token",
		"empty":            "",
		"tampered payload": tampered,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenManager_RejectsNonNumericSubject(t *testing.T) {
	m := newTestManager(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    "inkwell-api",
		Audience:  jwt.ClaimStrings{"inkwell-client"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(m.secret)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
