// This is a **mock identity provider**, designed to issue JWT tokens for the
// contacts service and to answer the user lookup of its remote verifier.
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gartstein/crm/internal/contacts/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
	tokenTTL      = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse mirrors the identity provider's user object.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type issuer struct {
	secret   string
	verifier *auth.JWTVerifier
	logger   *zap.Logger
}

func newMux(secret string, logger *zap.Logger) http.Handler {
	iss := &issuer{
		secret:   secret,
		verifier: auth.NewJWTVerifier(secret),
		logger:   logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /token", iss.token)
	mux.HandleFunc("GET /auth/v1/user", iss.user)
	return mux
}

// token issues a JWT for ?user_id=<uuid>&email=. A random user is used when
// user_id is missing.
func (i *issuer) token(w http.ResponseWriter, r *http.Request) {
	userID := uuid.New()
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "user_id must be a UUID")
			return
		}
		userID = parsed
	}

	token, err := auth.GenerateToken(userID, r.URL.Query().Get("email"), i.secret, tokenTTL)
	if err != nil {
		i.logger.Error("Failed to generate token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	i.logger.Info("Issued token", zap.String("user_id", userID.String()))
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// user answers who the bearer token belongs to.
func (i *issuer) user(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	principal, err := i.verifier.Verify(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{ID: principal.UserID.String(), Email: principal.Email})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newMux(secret, logger.Named("auth_service")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("Authentication service running", zap.String("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Authentication service failed", zap.Error(err))
	}
}
