package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
)

func newFakeProvider(t *testing.T, confirmationRequired bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("apikey") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		if body["email"] == "taken@example.com" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}

		if confirmationRequired {
			json.NewEncoder(w).Encode(map[string]string{"id": "ext-new"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fake-access",
			"refresh_token": "fake-refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "ext-new"},
		})
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		if body["password"] != "correct-password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fake-access",
			"refresh_token": "fake-refresh",
			"expires_in":    3600,
			"user":          map[string]string{"id": "ext-1"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func errCode(err error) string {
	var oe oops.OopsError
	if errors.As(err, &oe) {
		code, _ := oe.Code().(string)
		return code
	}
	return ""
}

func TestSignUpWithImmediateSession(t *testing.T) {
	srv := newFakeProvider(t, false)
	c := NewHTTPClient(srv.URL, "anon-key")

	res, err := c.SignUp(context.Background(), "new@example.com", "longenough1")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if res.ExternalID != "ext-new" {
		t.Errorf("external id = %q", res.ExternalID)
	}
	if res.ConfirmationRequired {
		t.Error("confirmation should not be required")
	}
	if res.Token == nil || res.Token.AccessToken != "fake-access" {
		t.Error("expected a session token")
	}
	if res.Token.Expiry.IsZero() {
		t.Error("expires_in should populate the token expiry")
	}
}

func TestSignUpWithConfirmationRequired(t *testing.T) {
	srv := newFakeProvider(t, true)
	c := NewHTTPClient(srv.URL, "anon-key")

	res, err := c.SignUp(context.Background(), "new@example.com", "longenough1")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if !res.ConfirmationRequired {
		t.Error("confirmation should be required")
	}
	if res.Token != nil {
		t.Error("no token should be issued before confirmation")
	}
	if res.ExternalID != "ext-new" {
		t.Errorf("external id = %q", res.ExternalID)
	}
}

func TestSignUpRejectedAPIKey(t *testing.T) {
	srv := newFakeProvider(t, false)
	c := NewHTTPClient(srv.URL, "")

	// A rejected API key is an operator problem, never a duplicate
	// account.
	_, err := c.SignUp(context.Background(), "new@example.com", "longenough1")
	if errCode(err) != CodeProviderFailure {
		t.Fatalf("expected %s, got %v", CodeProviderFailure, err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	srv := newFakeProvider(t, false)
	c := NewHTTPClient(srv.URL, "anon-key")

	_, err := c.SignUp(context.Background(), "taken@example.com", "longenough1")
	if errCode(err) != CodeEmailTaken {
		t.Fatalf("expected %s, got %v", CodeEmailTaken, err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	srv := newFakeProvider(t, false)
	c := NewHTTPClient(srv.URL, "anon-key")

	_, err := c.SignIn(context.Background(), "user@example.com", "wrong")
	if errCode(err) != CodeInvalidCredentials {
		t.Fatalf("expected %s, got %v", CodeInvalidCredentials, err)
	}
}

func TestSignInSuccess(t *testing.T) {
	srv := newFakeProvider(t, false)
	c := NewHTTPClient(srv.URL, "anon-key")

	res, err := c.SignIn(context.Background(), "user@example.com", "correct-password")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if res.ExternalID != "ext-1" {
		t.Errorf("external id = %q", res.ExternalID)
	}
	if res.Token == nil || res.Token.RefreshToken != "fake-refresh" {
		t.Error("expected refresh token")
	}
}

func TestFromConfig(t *testing.T) {
	client, err := FromConfig("", "")
	if client != nil || err != nil {
		t.Fatalf("both empty must mean local mode, got %v / %v", client, err)
	}

	_, err = FromConfig("https://auth.example.com", "")
	if errCode(err) != CodeMisconfigured {
		t.Fatalf("partial config must fail, got %v", err)
	}

	_, err = FromConfig("https://your-project-url.example.com", "real-key")
	if errCode(err) != CodeMisconfigured {
		t.Fatalf("placeholder config must fail, got %v", err)
	}

	client, err = FromConfig("https://auth.example.com", "real-key")
	if err != nil || client == nil {
		t.Fatalf("valid config must yield a client, got %v / %v", client, err)
	}
}
