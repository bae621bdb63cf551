// Package token signs and checks the short-lived links used to download
// generated PDFs.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience marks tokens that grant a PDF download.
const Audience = "download"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrWrongResource = errors.New("token is for another submission")
)

// DownloadSigner issues HS256 tokens whose subject is a submission ID.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewDownloadSigner(secret string, ttl time.Duration, issuer string) *DownloadSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Sign returns a token for id and the time it stops being accepted.
func (s *DownloadSigner) Sign(id uuid.UUID) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   id.String(),
		Audience:  jwt.ClaimStrings{Audience},
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify checks that raw is a valid, unexpired download token for id.
func (s *DownloadSigner) Verify(raw string, id uuid.UUID) error {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if claims.Subject != id.String() {
		return ErrWrongResource
	}
	return nil
}
