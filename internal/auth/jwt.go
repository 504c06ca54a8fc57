package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookLendingManagement/models"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and claims
	// that fail validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken covers tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the payload embedded in issued tokens. Subject carries the
// canonical user identifier.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the given subject and role, expiring after ttl.
func IssueToken(secret, subject string, role models.Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken validates signature and expiry and returns the claims.
func VerifyToken(tokenStr, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
