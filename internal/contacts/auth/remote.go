package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	e "github.com/gartstein/crm/internal/contacts/errors"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const userInfoPath = "/auth/v1/user"

// RemoteVerifier asks the identity provider which user a token belongs to.
type RemoteVerifier struct {
	client *resty.Client
	apiKey string
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewRemoteVerifier creates a verifier for the identity provider at baseURL.
// apiKey is sent as the "apikey" header when set.
func NewRemoteVerifier(baseURL, apiKey string, timeout time.Duration) *RemoteVerifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &RemoteVerifier{client: client, apiKey: apiKey}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	var user remoteUser
	req := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user)
	if v.apiKey != "" {
		req.SetHeader("apikey", v.apiKey)
	}

	resp, err := req.Get(userInfoPath)
	if err != nil {
		return Principal{}, fmt.Errorf("identity provider request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return Principal{}, fmt.Errorf("%w: identity provider rejected token", e.ErrUnauthorized)
	}
	if resp.IsError() {
		return Principal{}, fmt.Errorf("identity provider returned %s", resp.Status())
	}

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: identity provider returned no user id", e.ErrUnauthorized)
	}
	return Principal{UserID: userID, Email: user.Email}, nil
}
