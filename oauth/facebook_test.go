package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/panyam/accounts"
	"github.com/panyam/accounts/oauth"
)

// fakeGraph serves both the debug_token and /me shapes of the Graph API.
func fakeGraph(t *testing.T, debug, me http.HandlerFunc) *oauth.FacebookVerifier {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/debug_token", debug)
	mux.HandleFunc("/me", me)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &oauth.FacebookVerifier{
		AppID:           "app-id",
		AppSecret:       "app-secret",
		DebugEndpoint:   server.URL + "/debug_token",
		ProfileEndpoint: server.URL + "/me",
	}
}

func TestFacebookVerifyToken(t *testing.T) {
	verifier := fakeGraph(t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("access_token") != "app-id|app-secret" {
				t.Errorf("debug_token should use the app access token, got %q", r.URL.Query().Get("access_token"))
			}
			if r.URL.Query().Get("input_token") != "user-token" {
				t.Errorf("unexpected input_token %q", r.URL.Query().Get("input_token"))
			}
			w.Write([]byte(`{"data": {"is_valid": true, "user_id": "fb-123", "app_id": "app-id"}}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("access_token") != "user-token" {
				t.Errorf("profile fetch should use the input token, got %q", r.URL.Query().Get("access_token"))
			}
			w.Write([]byte(`{"id": "fb-123", "name": "FB User", "email": "fbuser@example.com"}`))
		})

	profile, err := verifier.VerifyToken(context.Background(), "user-token")
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if profile.Subject != "fb-123" || profile.Email != "fbuser@example.com" || profile.DisplayName != "FB User" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestFacebookVerifyTokenRejected(t *testing.T) {
	tests := []struct {
		name  string
		debug string
		check func(error) bool
	}{
		{
			"graph error object",
			`{"data": {"error": {"message": "Invalid OAuth access token", "code": 190}, "is_valid": false}}`,
			accounts.IsInvalidToken,
		},
		{
			"invalid flag",
			`{"data": {"is_valid": false, "user_id": "fb-123"}}`,
			accounts.IsInvalidToken,
		},
		{
			"missing data member",
			`{"something": "else"}`,
			accounts.IsExternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meCalled := false
			verifier := fakeGraph(t,
				func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(tt.debug)) },
				func(w http.ResponseWriter, r *http.Request) { meCalled = true })

			_, err := verifier.VerifyToken(context.Background(), "user-token")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if meCalled {
				t.Error("profile fetch should not happen when the token is rejected")
			}
		})
	}
}

func TestFacebookVerifyTokenTopLevelError(t *testing.T) {
	// A top-level error with a 400 status (expired app token etc) still
	// reads as the provider rejecting the request, not as an outage.
	verifier := fakeGraph(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"message": "Error validating application.", "code": 101}}`))
		},
		func(w http.ResponseWriter, r *http.Request) {})

	_, err := verifier.VerifyToken(context.Background(), "user-token")
	if !accounts.IsInvalidToken(err) {
		t.Errorf("expected invalid_token, got %v", err)
	}
}

func TestFacebookAppTokenOverride(t *testing.T) {
	verifier := fakeGraph(t,
		func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("access_token"); got != "explicit-app-token" {
				t.Errorf("expected explicit app token, got %q", got)
			}
			w.Write([]byte(`{"data": {"is_valid": true, "user_id": "fb-123"}}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id": "fb-123", "name": "FB User", "email": "fbuser@example.com"}`))
		})
	verifier.AppToken = "explicit-app-token"

	if _, err := verifier.VerifyToken(context.Background(), "user-token"); err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
}
