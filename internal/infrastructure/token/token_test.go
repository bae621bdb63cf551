package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestSignAndVerify(t *testing.T) {
	s := NewDownloadSigner(secret, time.Minute, "application-pdf")
	id := uuid.New()

	tok, expires, err := s.Sign(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 2*time.Second)
	assert.NoError(t, s.Verify(tok, id))
}

func TestVerify_Expired(t *testing.T) {
	s := NewDownloadSigner(secret, time.Minute, "")
	id := uuid.New()
	tok, _, err := s.Sign(id)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, s.Verify(tok, id), ErrExpiredToken)
}

func TestVerify_OtherSubmission(t *testing.T) {
	s := NewDownloadSigner(secret, time.Minute, "")
	tok, _, err := s.Sign(uuid.New())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify(tok, uuid.New()), ErrWrongResource)
}

func TestVerify_Rejects(t *testing.T) {
	s := NewDownloadSigner(secret, time.Minute, "application-pdf")
	id := uuid.New()

	other := NewDownloadSigner("another-secret-another-secret-xx", time.Minute, "application-pdf")
	foreign, _, err := other.Sign(id)
	require.NoError(t, err)

	sameSecret := NewDownloadSigner(secret, time.Minute, "billing")
	otherIssuer, _, err := sameSecret.Sign(id)
	require.NoError(t, err)

	wrongAud, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id.String(),
		Audience:  jwt.ClaimStrings{"api"},
		Issuer:    "application-pdf",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:  id.String(),
		Audience: jwt.ClaimStrings{Audience},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":        "not-a-token",
		"empty":          "",
		"foreign secret": foreign,
		"other issuer":   otherIssuer,
		"wrong audience": wrongAud,
		"unsigned":       none,
	} {
		assert.ErrorIs(t, s.Verify(tok, id), ErrInvalidToken, name)
	}
}

func TestNewDownloadSigner_DefaultTTL(t *testing.T) {
	s := NewDownloadSigner(secret, 0, "")
	assert.Equal(t, 15*time.Minute, s.ttl)
}
