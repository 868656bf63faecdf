package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
)

// HTTPClient talks to a GoTrue-style identity provider over REST.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client, e.g. for tests.
func (c *HTTPClient) SetHTTPClient(h *http.Client) { c.http = h }

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID          string `json:"id"`
		ConfirmedAt string `json:"confirmed_at"`
	} `json:"user"`
	// Signup without auto-confirm returns the bare user object.
	ID string `json:"id"`
}

func (r *authResponse) externalID() string {
	if r.User.ID != "" {
		return r.User.ID
	}
	return r.ID
}

func (r *authResponse) token() *oauth2.Token {
	if r.AccessToken == "" {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	var resp authResponse
	if err := c.post(ctx, "/signup", email, password, &resp); err != nil {
		// On signup a 400 means the account already exists, not bad
		// credentials.
		var oe oops.OopsError
		if errors.As(err, &oe) {
			if code, _ := oe.Code().(string); code == CodeInvalidCredentials {
				return nil, oops.Code(CodeEmailTaken).Errorf("email already registered")
			}
		}
		return nil, err
	}

	tok := resp.token()
	return &SignUpResult{
		ExternalID:           resp.externalID(),
		Token:                tok,
		ConfirmationRequired: tok == nil,
	}, nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	var resp authResponse
	if err := c.post(ctx, "/token?grant_type=password", email, password, &resp); err != nil {
		return nil, err
	}

	tok := resp.token()
	if tok == nil {
		return nil, oops.Code(CodeProviderFailure).Errorf("provider returned no session token")
	}
	return &SignInResult{
		ExternalID: resp.externalID(),
		Token:      tok,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path, email, password string, out *authResponse) error {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return oops.Code(CodeProviderFailure).Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return oops.Code(CodeProviderFailure).Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return oops.Code(CodeProviderFailure).With("path", path).Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return oops.Code(CodeProviderFailure).With("path", path).Wrap(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(body, out); err != nil {
			return oops.Code(CodeProviderFailure).With("path", path).Wrap(err)
		}
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		// The provider rejects both unknown accounts and wrong passwords
		// this way; keep the two indistinguishable for callers.
		return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
	case resp.StatusCode == http.StatusUnauthorized:
		// 401 means the provider rejected our API key, not the user's
		// credentials.
		return oops.Code(CodeProviderFailure).
			With("path", path).
			Errorf("provider rejected the API key")
	default:
		return oops.Code(CodeProviderFailure).
			With("path", path).
			Errorf("provider request failed with status %d", resp.StatusCode)
	}
}
