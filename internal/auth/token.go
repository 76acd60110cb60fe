// Package auth issues and verifies the signed access tokens handed out at
// sign-in. A token binds a session id to its user; the session itself lives
// in the store, so revoking it there invalidates the token.
package auth

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

const Issuer = "smartmark"

var ErrInvalidToken = errors.New("invalid access token")

type claims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	gojwt.RegisteredClaims
}

// Tokens signs HS256 access tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for s. The token expires with the session.
func (t *Tokens) Issue(s domain.Session) (string, error) {
	if s.ID == "" || s.User.ID == "" {
		return "", fmt.Errorf("issue token: %w", domain.ErrNoSession)
	}
	c := claims{
		SessionID: s.ID,
		Email:     s.User.Email,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   s.User.ID,
			IssuedAt:  gojwt.NewNumericDate(t.now()),
			ExpiresAt: gojwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of raw and returns the
// session skeleton it carries.
func (t *Tokens) Verify(raw string) (domain.Session, error) {
	parser := gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(Issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(t.now),
	)

	var c claims
	_, err := parser.ParseWithClaims(raw, &c, func(*gojwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.SessionID == "" || c.Subject == "" {
		return domain.Session{}, fmt.Errorf("%w: missing sid or sub", ErrInvalidToken)
	}

	s := domain.Session{
		ID:   c.SessionID,
		User: domain.User{ID: c.Subject, Email: c.Email},
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		s.CreatedAt = c.IssuedAt.Time
	}
	return s, nil
}
