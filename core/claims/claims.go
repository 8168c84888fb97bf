package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleUser       = "USER"
)

type Claims struct {
	UserID string
	Role   string
}

type ctxKey int

const claimsKey ctxKey = 1

var ErrMissing = errors.New("claim value missing from context")

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleInstructor, RoleUser:
		return true
	}
	return false
}

// HasRole reports whether the caller holds role. Admins hold every role.
func HasRole(ctx context.Context, role string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == role || c.Role == RoleAdmin
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

func IsUser(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == id
}

// IsOwner allows the owner of a resource or an admin.
func IsOwner(ctx context.Context, ownerID string) bool {
	return IsUser(ctx, ownerID) || IsAdmin(ctx)
}
