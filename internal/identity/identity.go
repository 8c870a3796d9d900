// Package identity carries the authenticated caller through the core.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role names a caller's authority level.
type Role string

const (
	RoleClient       Role = "client"
	RolePractitioner Role = "practitioner"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "super_admin"
)

var roleRank = map[Role]int{
	RoleClient:       1,
	RolePractitioner: 2,
	RoleAdmin:        3,
	RoleSuperAdmin:   4,
}

// ParseRole normalizes a role string; unknown roles are rejected.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("identity: unknown role %q", raw)
	}
	return r, nil
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other] && roleRank[r] > 0
}

// Elevated roles may act on any appointment.
func (r Role) Elevated() bool {
	return r.AtLeast(RoleAdmin)
}

// Caller is the explicit identity passed into every core operation.
type Caller struct {
	ID   string
	Role Role
}

// Valid reports whether the caller has both an id and a known role.
func (c Caller) Valid() bool {
	_, known := roleRank[c.Role]
	return c.ID != "" && known
}

type ctxKey string

const callerKey ctxKey = "practice.caller"

// WithCaller stores the caller in context. Only the HTTP edge does this; the core
// takes Caller as a parameter.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext extracts the caller if present.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok && c.Valid()
}

// Claims is the JWT payload issued by the auth service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("identity: invalid token")

// ParseToken validates an HMAC-signed token and returns the caller it names.
func ParseToken(tokenString, secret string) (Caller, error) {
	if secret == "" {
		return Caller{}, fmt.Errorf("%w: signing secret not configured", ErrInvalidToken)
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Caller{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Caller{ID: claims.Subject, Role: role}, nil
}

// IssueToken signs a token for the caller. Used by tooling and tests.
func IssueToken(c Caller, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
