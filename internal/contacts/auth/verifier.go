// Package auth resolves bearer tokens to the calling user, either by
// checking HS256 signatures locally or by asking the identity provider, and
// guards the HTTP routes with that check.
package auth

import (
	"context"
	"fmt"

	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

// Verifier turns a bearer token into a Principal. Implementations return
// an error wrapping ErrUnauthorized for tokens they reject.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type contextKey string

const (
	principalContextKey contextKey = "principal"
)

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the caller stored by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// JWTVerifier checks tokens signed with a shared HMAC secret.
type JWTVerifier struct {
	secret string
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (Principal, error) {
	claims, err := validateToken(tokenString, v.secret)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", e.ErrUnauthorized, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", e.ErrUnauthorized)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject is not a user id", e.ErrUnauthorized)
	}

	email, _ := claims["email"].(string)
	return Principal{UserID: userID, Email: email}, nil
}

// validateToken checks the token signature and returns parsed claims if valid.
func validateToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}
