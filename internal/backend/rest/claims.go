package rest

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// TokenClaims are the access-token claims the client relies on.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims reads the claims of an access token without verifying its
// signature. The hosted backend verifies tokens on every request; the
// client only needs the subject and expiry.
func ParseClaims(token string) (*TokenClaims, error) {
	var claims TokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: malformed access token: %v", domain.ErrUnauthenticated, err)
	}
	return &claims, nil
}
