// Package oauth implements provider-side verification of client-supplied
// tokens for the accounts services, plus authorization-code helpers for
// apps that obtain provider tokens server-side.
//
// Each verifier calls its provider's token-introspection endpoint
// synchronously, bounded by the request context and the HTTP client's
// timeout, and normalizes the response into an accounts.Profile. A slow or
// hung provider only ever blocks its own request.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/panyam/accounts"
)

// DefaultTimeout bounds introspection round-trips when no custom HTTP
// client is supplied.
const DefaultTimeout = 10 * time.Second

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// introspect performs one introspection round-trip and applies the shared
// error taxonomy: network failures, unreadable bodies and malformed JSON
// are external-service errors; a provider-reported error in the payload is
// an invalid-token error; any other non-2xx status is an external-service
// error. The payload's error member is checked before the status code so a
// 400 carrying {"error": ...} reads as the provider rejecting the token,
// not as the provider being broken.
func introspect(ctx context.Context, client *http.Client, provider, endpoint string, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, accounts.WrapError(accounts.ErrCodeExternalService,
			fmt.Sprintf("%s: bad introspection request", provider), err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, accounts.WrapError(accounts.ErrCodeExternalService,
			fmt.Sprintf("%s introspection failed", provider), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, accounts.WrapError(accounts.ErrCodeExternalService,
			fmt.Sprintf("%s introspection response unreadable", provider), err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, accounts.NewError(accounts.ErrCodeExternalService,
			fmt.Sprintf("%s returned a malformed payload (status %d)", provider, resp.StatusCode), "")
	}

	if msg := providerError(payload); msg != "" {
		return nil, accounts.NewError(accounts.ErrCodeInvalidToken,
			fmt.Sprintf("%s rejected the token: %s", provider, msg), "")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, accounts.NewError(accounts.ErrCodeExternalService,
			fmt.Sprintf("%s introspection returned status %d", provider, resp.StatusCode), "")
	}

	return payload, nil
}

// providerError extracts a provider-reported error from a payload. Google
// uses a string "error" plus "error_description"; Facebook nests an object
// with a "message".
func providerError(payload map[string]any) string {
	v, ok := payload["error"]
	if !ok {
		return ""
	}
	switch e := v.(type) {
	case string:
		if desc, ok := payload["error_description"].(string); ok && desc != "" {
			return e + ": " + desc
		}
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "provider reported an error"
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
