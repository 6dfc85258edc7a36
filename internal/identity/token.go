// Package identity verifies principals and resolves their public profile.
package identity

import (
	"fmt"
	"time"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks HS256 access tokens issued by the auth service.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify returns the principal id carried in the token's sub claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: missing token", domain.ErrAuthenticationFailed)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", domain.ErrAuthenticationFailed)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: invalid token claims", domain.ErrAuthenticationFailed)
	}
	return sub, nil
}

// GenerateAccess creates a signed HS256 JWT access token with the given claims.
func GenerateAccess(secret, userID, issuer, audience string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": issuer,
		"aud": audience,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
