package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/models"
)

// SubjectResolver maps a token subject claim to a user record. A miss is
// reported as (nil, nil).
type SubjectResolver interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

// Gate performs token verification and identity resolution for requests.
type Gate struct {
	Secret string
	Users  SubjectResolver
}

type userKey struct{}

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext retrieves the authenticated user from context (if any).
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok
}

// BearerFromRequest extracts the token from an Authorization: Bearer header.
func BearerFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperr.New(apperr.KindUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperr.New(apperr.KindUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Authenticate verifies the token and resolves its subject to a user.
// Every failure in the chain surfaces as the same unauthorized error so the
// caller cannot tell which step rejected it.
func (g *Gate) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := VerifyToken(token, g.Secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid or expired token", err)
	}
	user, err := g.Users.GetBySubject(ctx, claims.Subject)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "invalid or expired token", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	}
	return user, nil
}

// Authorize enforces an exact-match role check. There is no role hierarchy:
// an admin does not satisfy a user-only requirement.
func Authorize(u *models.User, required models.Role) error {
	if u.Role != required {
		return apperr.New(apperr.KindForbidden, fmt.Sprintf("requires %s role", required))
	}
	return nil
}
