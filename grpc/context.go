// Package grpc carries account authentication across gRPC boundaries. An
// interceptor verifies the bearer token carried in request metadata and
// services read the resolved account id back out of the context.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	// DefaultMetadataKeyToken is the metadata key carrying the session token.
	DefaultMetadataKeyToken = "authorization"

	// DefaultMetadataKeyAccountID is the metadata key the interceptor writes
	// the verified account id to.
	DefaultMetadataKeyAccountID = "x-account-id"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyToken is the metadata key the session token is read from.
	// Defaults to "authorization" (a "Bearer " prefix is tolerated).
	MetadataKeyToken string

	// MetadataKeyAccountID is the metadata key the verified account id is
	// written to.  Defaults to "x-account-id".
	MetadataKeyAccountID string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyToken:     DefaultMetadataKeyToken,
		MetadataKeyAccountID: DefaultMetadataKeyAccountID,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyToken == "" {
		c.MetadataKeyToken = DefaultMetadataKeyToken
	}
	if c.MetadataKeyAccountID == "" {
		c.MetadataKeyAccountID = DefaultMetadataKeyAccountID
	}
}

// AccountIDFromContext extracts the verified account id from the context
// metadata.  Returns "" when the request is unauthenticated.
func AccountIDFromContext(ctx context.Context) string {
	return AccountIDFromContextWithConfig(ctx, nil)
}

// AccountIDFromContextWithConfig extracts the account id using the
// specified config.
func AccountIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyAccountID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// TokenToOutgoingContext attaches a session token to outgoing metadata so a
// downstream service's interceptor can verify it.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeyToken)
}

// TokenToOutgoingContextWithKey attaches a session token with a custom key.
func TokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, "Bearer "+token)
}

// IsAuthenticated returns true if the context carries a verified account id.
func IsAuthenticated(ctx context.Context) bool {
	return AccountIDFromContext(ctx) != ""
}
