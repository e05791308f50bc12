// Package auth verifies session tokens and exposes the caller's identity.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie the frontend session library sets.
const SessionCookieName = "__session"

// RoleAdmin is the only role granted access to admin-protected routes.
const RoleAdmin = "admin"

// roleDefault applies when a token carries no role claim.
const roleDefault = "viewer"

var (
	ErrNoToken      = errors.New("auth: no token present")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims are the token claims this service reads.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is a verified caller.
type Identity struct {
	UserID string
	role   string
}

// Role returns the caller's normalized role. Comparison is
// case-insensitive and a missing claim defaults to "viewer", never to
// admin.
func (i *Identity) Role() string {
	role := strings.ToLower(strings.TrimSpace(i.role))
	if role == "" {
		return roleDefault
	}
	return role
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role() == RoleAdmin
}

// Verifier validates session tokens against the issuer's public key.
type Verifier struct {
	publicKey *rsa.PublicKey
}

// NewVerifier parses a PEM-encoded RSA public key.
func NewVerifier(publicKeyPEM string) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return &Verifier{publicKey: key}, nil
}

// Verify parses and validates a token string, returning the caller's
// identity. Expired or tampered tokens return ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID: claims.Subject,
		role:   claims.Role,
	}, nil
}

// TokenFromRequest extracts the session token from the Authorization
// header or the session cookie. Returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// IdentityFromRequest resolves the caller from the request, if any. A
// nil verifier treats every request as anonymous, which is how the
// server runs in development without a configured public key.
func (v *Verifier) IdentityFromRequest(r *http.Request) (*Identity, error) {
	if v == nil {
		return nil, ErrNoToken
	}
	token := TokenFromRequest(r)
	if token == "" {
		return nil, ErrNoToken
	}
	return v.Verify(token)
}

// NewIdentity builds an identity directly. Used by tests and the CLI.
func NewIdentity(userID, role string) *Identity {
	return &Identity{UserID: userID, role: role}
}
