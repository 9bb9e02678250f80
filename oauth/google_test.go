package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/panyam/accounts"
	"github.com/panyam/accounts/oauth"
)

func TestGoogleVerifyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_token"); got != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "invalid_token", "error_description": "Invalid Value"}`))
			return
		}
		w.Write([]byte(`{"sub": "google-subject-1", "email": "guser@example.com", "name": "G User"}`))
	}))
	defer server.Close()

	verifier := &oauth.GoogleVerifier{Endpoint: server.URL}

	profile, err := verifier.VerifyToken(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if profile.Subject != "google-subject-1" || profile.Email != "guser@example.com" || profile.DisplayName != "G User" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	// A provider-reported error reads as the token being rejected even
	// though the status is non-2xx.
	_, err = verifier.VerifyToken(context.Background(), "bad-token")
	if !accounts.IsInvalidToken(err) {
		t.Errorf("provider-reported error should be invalid_token, got %v", err)
	}
}

func TestGoogleVerifyTokenFailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"unexpected": true}`))
			},
			accounts.IsExternal,
		},
		{
			"malformed payload",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`this is not json`))
			},
			accounts.IsExternal,
		},
		{
			"payload without subject",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"email": "guser@example.com"}`))
			},
			accounts.IsExternal,
		},
		{
			"error payload with 200 status",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error": "invalid_token"}`))
			},
			accounts.IsInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()
			verifier := &oauth.GoogleVerifier{Endpoint: server.URL}
			_, err := verifier.VerifyToken(context.Background(), "some-token")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGoogleVerifyTokenUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	verifier := &oauth.GoogleVerifier{Endpoint: server.URL}
	_, err := verifier.VerifyToken(context.Background(), "some-token")
	if !accounts.IsExternal(err) {
		t.Errorf("unreachable provider should be external_service, got %v", err)
	}
}

func TestGoogleVerifyTokenEmpty(t *testing.T) {
	verifier := &oauth.GoogleVerifier{Endpoint: "http://unused.invalid"}
	_, err := verifier.VerifyToken(context.Background(), "")
	if !accounts.IsInvalidToken(err) {
		t.Errorf("empty token should be invalid_token, got %v", err)
	}
}
