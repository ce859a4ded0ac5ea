package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, "storefront-test")
	require.NoError(t, err)
	return v
}

func TestNewVerifier_RejectsShortSecret(t *testing.T) {
	_, err := NewVerifier("short", "")
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := newTestVerifier(t)

	token, expiresAt, err := v.Issue(Identity{UserID: "user_123", Email: "ada@example.com"}, 15*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	id, err := v.Verify(token)

	require.NoError(t, err)
	assert.Equal(t, "user_123", id.UserID)
	assert.Equal(t, "ada@example.com", id.Email)
}

func TestVerifier_Expired(t *testing.T) {
	v := newTestVerifier(t)

	token, _, err := v.Issue(Identity{UserID: "user_123"}, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifier_Invalid(t *testing.T) {
	v := newTestVerifier(t)
	other, err := NewVerifier("another-secret-key-that-is-long-enough", "storefront-test")
	require.NoError(t, err)
	foreign, _, err := other.Issue(Identity{UserID: "user_1"}, time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := NewVerifier(testSecret, "someone-else")
	require.NoError(t, err)
	misissued, _, err := wrongIssuer.Issue(Identity{UserID: "user_1"}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"wrong issuer", misissued},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v := newTestVerifier(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "user_1"})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_FallsBackToSubject(t *testing.T) {
	v := newTestVerifier(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user_sub",
		Issuer:    "storefront-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	id, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user_sub", id.UserID)
}

func TestVerifier_MissingUser(t *testing.T) {
	v := newTestVerifier(t)

	token, _, err := v.Issue(Identity{}, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
