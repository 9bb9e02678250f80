package oauth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/panyam/accounts"
)

// Facebook Graph endpoints: debug_token validates an input token against
// an app access token; /me resolves the token's profile fields.
const (
	DefaultFacebookDebugEndpoint   = "https://graph.facebook.com/debug_token"
	DefaultFacebookProfileEndpoint = "https://graph.facebook.com/me"
)

// FacebookVerifier verifies client-supplied Facebook access tokens.
//
// debug_token proves the token is valid and belongs to our app, but its
// payload carries no name or email, so a verified token is followed by a
// Graph /me fetch using the same input token. Both calls share the caller's
// context and the client timeout.
type FacebookVerifier struct {
	AppID     string
	AppSecret string
	// AppToken overrides the default "appid|appsecret" app access token.
	AppToken string

	DebugEndpoint   string
	ProfileEndpoint string
	Client          *http.Client
}

func (v *FacebookVerifier) appToken() string {
	if v.AppToken != "" {
		return v.AppToken
	}
	return v.AppID + "|" + v.AppSecret
}

func (v *FacebookVerifier) debugEndpoint() string {
	if v.DebugEndpoint != "" {
		return v.DebugEndpoint
	}
	return DefaultFacebookDebugEndpoint
}

func (v *FacebookVerifier) profileEndpoint() string {
	if v.ProfileEndpoint != "" {
		return v.ProfileEndpoint
	}
	return DefaultFacebookProfileEndpoint
}

func (v *FacebookVerifier) VerifyToken(ctx context.Context, token string) (*accounts.Profile, error) {
	if token == "" {
		return nil, accounts.NewError(accounts.ErrCodeInvalidToken, "facebook: no token supplied", "")
	}

	client := httpClient(v.Client)
	payload, err := introspect(ctx, client, "facebook", v.debugEndpoint(), url.Values{
		"input_token":  {token},
		"access_token": {v.appToken()},
	})
	if err != nil {
		return nil, err
	}

	data, ok := payload["data"].(map[string]any)
	if !ok {
		return nil, accounts.NewError(accounts.ErrCodeExternalService,
			"facebook debug_token payload has no data member", "")
	}
	if msg := providerError(data); msg != "" {
		return nil, accounts.NewError(accounts.ErrCodeInvalidToken,
			"facebook rejected the token: "+msg, "")
	}
	if valid, ok := data["is_valid"].(bool); !ok || !valid {
		return nil, accounts.NewError(accounts.ErrCodeInvalidToken,
			"facebook reports the token as invalid", "")
	}

	me, err := introspect(ctx, client, "facebook", v.profileEndpoint(), url.Values{
		"fields":       {"id,name,email"},
		"access_token": {token},
	})
	if err != nil {
		return nil, err
	}

	profile := &accounts.Profile{
		DisplayName: stringField(me, "name"),
		Email:       stringField(me, "email"),
		Subject:     stringField(data, "user_id"),
	}
	if profile.Subject == "" {
		profile.Subject = stringField(me, "id")
	}
	if profile.Subject == "" {
		return nil, accounts.NewError(accounts.ErrCodeExternalService,
			"facebook payload has no subject", "")
	}
	return profile, nil
}
