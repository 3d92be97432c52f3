package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// Token errors
var (
	ErrMissingToken = errors.New("missing identity token")
	ErrInvalidToken = errors.New("invalid identity token")
)

// Claims are the identity claims carried by a token
type Claims struct {
	UID        string `json:"uid"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	FullName   string `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims to an Identity
func (c *Claims) Identity() models.Identity {
	return models.Identity{
		UID:        c.UID,
		Email:      strings.ToLower(c.Email),
		Department: c.Department,
		FullName:   c.FullName,
	}
}

// TokenVerifier signs and verifies HS256 identity tokens
type TokenVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenVerifier creates a verifier for secret. ttl applies to issued tokens.
func NewTokenVerifier(secret string, ttl time.Duration) *TokenVerifier {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenVerifier{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token for identity
func (v *TokenVerifier) Issue(identity models.Identity) (string, error) {
	if !identity.Valid() {
		return "", fmt.Errorf("identity requires uid and email: %w", ErrInvalidToken)
	}
	if identity.External() {
		return "", fmt.Errorf("identity uses the reserved %q namespace: %w", models.ExternalPrefix, ErrInvalidToken)
	}

	now := v.now()
	claims := &Claims{
		UID:        identity.UID,
		Email:      identity.Email,
		Department: identity.Department,
		FullName:   identity.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the identity it carries
func (v *TokenVerifier) Verify(tokenString string) (models.Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return models.Identity{}, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	identity := claims.Identity()
	if identity.UID == "" {
		identity.UID = claims.Subject
	}
	if !identity.Valid() {
		return models.Identity{}, fmt.Errorf("%w: uid and email claims are required", ErrInvalidToken)
	}
	if identity.External() {
		return models.Identity{}, fmt.Errorf("%w: reserved identity namespace", ErrInvalidToken)
	}
	return identity, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
