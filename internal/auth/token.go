package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single rejection outcome for every verification
// failure: bad signature, malformed payload or expiry. Callers get no hint
// of which one it was.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and verifies signed bearer tokens. The signing secret
// is injected at construction, there is no ambient state.
type TokenManager struct {
	secret     []byte
	defaultTTL time.Duration
}

func NewTokenManager(secret string, defaultTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), defaultTTL: defaultTTL}
}

// Issue signs a token for subject with the default TTL.
func (m *TokenManager) Issue(subject string) (string, error) {
	return m.IssueWithTTL(subject, m.defaultTTL)
}

// IssueWithTTL signs a token expiring exactly at now+ttl. A zero ttl
// produces a token that is already expired on verification.
func (m *TokenManager) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature integrity and expiry and returns the subject.
// The expiry boundary is strict: exp == now is treated as expired.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
