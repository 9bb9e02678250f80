package accounts

import "context"

// Profile is the normalized identity returned by a provider's
// token-introspection endpoint.
type Profile struct {
	// DisplayName is the human-readable name reported by the provider
	DisplayName string

	// Email is the address the provider has verified for this identity
	Email string

	// Subject is the provider's stable, opaque identifier for the identity
	Subject string
}

// OAuthVerifier exchanges a client-supplied provider token for a verified
// profile. Implementations live in the oauth package (one per provider) and
// call the provider's introspection endpoint synchronously, bounded by the
// request context and the verifier's HTTP client timeout.
//
// Failures are typed: ErrCodeExternalService for network failures, non-2xx
// responses and malformed payloads; ErrCodeInvalidToken when the provider's
// payload reports the token itself as invalid. Registration never proceeds
// on either.
type OAuthVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Profile, error)
}
