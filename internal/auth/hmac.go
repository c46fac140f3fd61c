package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/photolog/internal/model"
)

const devIssuer = "photolog-dev"

// HMACVerifier issues and verifies HS256 tokens signed with a shared secret.
//
// It stands in for the Gateway when FIREBASE_DEV_SECRET is set so the API can be driven
// locally without a Firebase project. The claim layout mirrors a Firebase ID
// token, so everything downstream of Verify behaves identically.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates an HMACVerifier with the given secret.
// Example: FIREBASE_DEV_SECRET=$(openssl rand -hex 32)
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: dev secret must be at least 16 characters")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

type devClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
}

// Issue signs a token for id that expires after ttl.
func (v *HMACVerifier) Issue(id model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()

	c := devClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    devIssuer,
		},
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
	}
	if id.Name != nil {
		c.Name = *id.Name
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token produced by Issue.
//
// ALGORITHM CONFUSION:
// WithValidMethods pins HS256. Without it a token declaring "alg":"none" or
// an RSA algorithm could be accepted with the secret misused as a key.
func (v *HMACVerifier) Verify(_ context.Context, raw string) (model.Identity, error) {
	var c devClaims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(devIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.Identity{}, classify(err)
	}
	if c.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return identityFrom(c.Subject, c.Email, c.EmailVerified, c.Name), nil
}
