package oauth

import (
	"context"
	"net/http"
	"net/url"

	"google.golang.org/api/idtoken"

	"github.com/panyam/accounts"
)

// DefaultGoogleEndpoint is Google's tokeninfo introspection endpoint,
// keyed by an id_token parameter.
const DefaultGoogleEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier verifies client-supplied Google ID tokens.
//
// With no Audience set it introspects the token against the tokeninfo
// endpoint, whose JSON payload carries the ID token's claims (or an error
// member when the token is invalid). Setting Audience switches to signed
// validation against Google's published certificates via the idtoken
// package, which also pins the token to the configured OAuth client.
type GoogleVerifier struct {
	Audience string
	Endpoint string
	Client   *http.Client
}

func (v *GoogleVerifier) endpoint() string {
	if v.Endpoint != "" {
		return v.Endpoint
	}
	return DefaultGoogleEndpoint
}

func (v *GoogleVerifier) VerifyToken(ctx context.Context, token string) (*accounts.Profile, error) {
	if token == "" {
		return nil, accounts.NewError(accounts.ErrCodeInvalidToken, "google: no token supplied", "")
	}

	if v.Audience != "" {
		payload, err := idtoken.Validate(ctx, token, v.Audience)
		if err != nil {
			return nil, accounts.WrapError(accounts.ErrCodeInvalidToken, "google rejected the id token", err)
		}
		return &accounts.Profile{
			DisplayName: stringField(payload.Claims, "name"),
			Email:       stringField(payload.Claims, "email"),
			Subject:     payload.Subject,
		}, nil
	}

	payload, err := introspect(ctx, httpClient(v.Client), "google", v.endpoint(),
		url.Values{"id_token": {token}})
	if err != nil {
		return nil, err
	}

	profile := &accounts.Profile{
		DisplayName: stringField(payload, "name"),
		Email:       stringField(payload, "email"),
		Subject:     stringField(payload, "sub"),
	}
	if profile.Subject == "" {
		return nil, accounts.NewError(accounts.ErrCodeExternalService,
			"google payload has no subject", "")
	}
	return profile, nil
}
