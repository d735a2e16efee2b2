package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	e "github.com/gartstein/crm/internal/contacts/errors"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// publicPaths are served without a token.
var publicPaths = map[string]bool{
	"/healthz": true,
}

// MiddlewareOption customizes HTTPMiddleware.
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	fixedStatus map[string]int
}

// WithFailureStatus answers every authentication failure on the given paths
// with status, whether the token was rejected or the identity provider
// failed.
func WithFailureStatus(status int, paths ...string) MiddlewareOption {
	return func(o *middlewareOptions) {
		for _, p := range paths {
			o.fixedStatus[p] = status
		}
	}
}

// HTTPMiddleware verifies the bearer token of every protected request and
// stores the resulting Principal in the request context.
func HTTPMiddleware(next http.Handler, verifier Verifier, logger *zap.Logger, opts ...MiddlewareOption) http.Handler {
	logger = logger.Named("auth")
	o := &middlewareOptions{fixedStatus: map[string]int{}}
	for _, opt := range opts {
		opt(o)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication for non-protected endpoints
		if !isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		fail := func(status int, message string, err error) {
			if fixed, ok := o.fixedStatus[r.URL.Path]; ok {
				status = fixed
			}
			writeAuthError(w, status, message, err)
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			fail(http.StatusUnauthorized, "Unauthorized", err)
			return
		}

		principal, err := verifier.Verify(r.Context(), tokenString)
		if err != nil {
			if errors.Is(err, e.ErrUnauthorized) {
				fail(http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			logger.Error("Token verification failed", zap.Error(err))
			fail(http.StatusBadGateway, "Authentication failed", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header required")
	}

	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", fmt.Errorf("invalid authorization format: missing Bearer prefix")
	}

	tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tokenString == "" {
		return "", fmt.Errorf("invalid authorization format: empty token")
	}

	return tokenString, nil
}

func isProtectedRequest(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return false
	}
	return !publicPaths[r.URL.Path]
}

func writeAuthError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"details": err.Error(),
	})
}
