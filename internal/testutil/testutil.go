package testutil

import (
	"database/sql"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookLendingManagement/internal/db"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The shared cache keeps multiple connections on the same database. The DB
// is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SignToken returns a signed HS256 token with the claims the service reads.
func SignToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// SignExpiredToken returns a token whose expiry is already in the past.
func SignExpiredToken(t *testing.T, secret, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(-time.Hour).Unix(),
		"iat":  time.Now().Add(-2 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
