// Package auth verifies access tokens issued by the hosted identity provider.
// Accounts, passwords and sign-in live with the provider; this service only
// checks signatures and reads the role claim.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNotAdmin     = errors.New("admin role required")
)

type AppMetadata struct {
	Role string `json:"role"`
}

type Claims struct {
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// HasRole checks both the top-level role claim and app_metadata.role.
func (c *Claims) HasRole(role string) bool {
	return c.Role == role || c.AppMetadata.Role == role
}

type Verifier struct {
	secret    []byte
	adminRole string
}

func NewVerifier(secret, adminRole string) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		adminRole: adminRole,
	}
}

// Verify validates an HS256 token and returns its claims. Tokens without exp are rejected.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyAdmin is Verify plus the admin role check.
func (v *Verifier) VerifyAdmin(tokenString string) (*Claims, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.HasRole(v.adminRole) {
		return nil, ErrNotAdmin
	}
	return claims, nil
}
