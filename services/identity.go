package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PlayerIdentity is what the auth collaborator vouches for: a verified player
// id and a display name. Credentials are never checked here.
type PlayerIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Identity interface {
	Verify(ctx context.Context, token string) (PlayerIdentity, error)
}

// HTTPIdentity verifies tokens against an external auth service.
type HTTPIdentity struct {
	url    string
	client *http.Client
}

func NewHTTPIdentity(url string) *HTTPIdentity {
	return &HTTPIdentity{url: url, client: &http.Client{}}
}

func (h *HTTPIdentity) Verify(ctx context.Context, token string) (PlayerIdentity, error) {
	if token == "" {
		return PlayerIdentity{}, fmt.Errorf("missing token")
	}

	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return PlayerIdentity{}, fmt.Errorf("failed to marshal JSON: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewBuffer(payload))
	if err != nil {
		return PlayerIdentity{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return PlayerIdentity{}, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PlayerIdentity{}, fmt.Errorf("failed to read response body: %v", err)
	}

	var verify struct {
		Valid bool   `json:"valid"`
		ID    string `json:"id"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &verify); err != nil {
		return PlayerIdentity{}, fmt.Errorf("failed to parse response JSON: %v", err)
	}
	if !verify.Valid || verify.ID == "" {
		return PlayerIdentity{}, fmt.Errorf("token rejected")
	}
	return PlayerIdentity{ID: verify.ID, Name: verify.Name}, nil
}

// QueryIdentity trusts the token as "<id>:<name>" without an external call.
// Only for local development when AUTH_VERIFY_URL is unset.
type QueryIdentity struct{}

func (QueryIdentity) Verify(_ context.Context, token string) (PlayerIdentity, error) {
	if token == "" {
		return PlayerIdentity{}, fmt.Errorf("missing token")
	}
	id, name := token, token
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			id, name = token[:i], token[i+1:]
			break
		}
	}
	return PlayerIdentity{ID: id, Name: name}, nil
}

// NewIdentity picks the HTTP verifier when a URL is configured and the
// development fallback otherwise.
func NewIdentity(authVerifyURL string) Identity {
	if authVerifyURL != "" {
		return NewHTTPIdentity(authVerifyURL)
	}
	return QueryIdentity{}
}
