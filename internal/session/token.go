package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"project-tracker/internal/domain"
)

// Claims is the JWT payload exchanged between the REST API and its clients.
// The subject carries the username.
type Claims struct {
	UserID int64    `json:"id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// User rebuilds the principal described by the claims.
func (c *Claims) User() domain.User {
	return domain.User{
		ID:       c.UserID,
		Username: c.Subject,
		Email:    c.Email,
		Roles:    domain.ParseRoles(c.Roles),
	}
}

// ExpiresAtTime returns the expiry time, or the zero time when the token never expires.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// DecodeUnverified reads the claims without checking the signature.
// Clients use it to learn who they are; the server remains the authority.
func DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("decode token: missing subject")
	}
	return claims, nil
}

// IssueToken signs an HS256 token for user that expires after ttl.
func IssueToken(secret []byte, user domain.User, ttl time.Duration, now time.Time) (string, error) {
	roles := make([]string, 0, len(user.EffectiveRoles()))
	for _, r := range user.EffectiveRoles() {
		roles = append(roles, r.WireName())
	}
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of an HS256 token.
func VerifyToken(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}
