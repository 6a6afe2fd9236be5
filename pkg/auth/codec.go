package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSecretMissing means the server-side signing secret is not
	// configured. This is an operator error (500), never a client 401.
	ErrSecretMissing = errors.New("auth: signing secret is not configured")

	// ErrTokenExpired means the token's signature verified but its validity
	// window has passed.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenInvalid covers every other verification failure. Decoding
	// fails closed: ambiguity is invalid, never coerced.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Codec signs and verifies token claim sets with a process-wide HS256 secret.
// Verification is a pure function of (token, secret); the codec holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	secret           []byte
	loginTTL         time.Duration
	impersonationTTL time.Duration
}

// NewCodec creates a codec. The secret may be empty here; every Encode and
// Decode call re-checks it so that auth-dependent paths fail with a
// configuration error rather than misleading token errors.
func NewCodec(secret []byte, loginTTL, impersonationTTL time.Duration) *Codec {
	return &Codec{
		secret:           secret,
		loginTTL:         loginTTL,
		impersonationTTL: impersonationTTL,
	}
}

// LoginTTL returns the long TTL tier used for normal login tokens
func (c *Codec) LoginTTL() time.Duration { return c.loginTTL }

// ImpersonationTTL returns the short TTL tier used for impersonation tokens
func (c *Codec) ImpersonationTTL() time.Duration { return c.impersonationTTL }

// Encode signs the claim set, embedding an absolute expiry derived from ttl
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrSecretMissing
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the claims. Expired tokens
// return ErrTokenExpired; every other failure returns ErrTokenInvalid.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	if len(c.secret) == 0 {
		return nil, ErrSecretMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
