package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenVerifier resolves a session token to the account id it was issued
// for.  Wire this to accounts.TokenIssuer.Verify.
type TokenVerifier func(token string) (string, error)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Verify resolves tokens to account ids.  Required.
	Verify TokenVerifier

	// RequireAuth when true rejects requests without a verifiable token.
	// When false, requests proceed but AccountIDFromContext returns "".
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only consulted when RequireAuth is true.  Keys are full method names
	// like "/accounts.Accounts/Authenticate".
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for every method
// except the listed public ones.
func NewInterceptorConfig(verify TokenVerifier, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Config:        DefaultConfig(),
		Verify:        verify,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(verify TokenVerifier) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Verify:        verify,
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

func (c *InterceptorConfig) ensureDefaults() {
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// authenticate verifies the request's token and returns a context with the
// resolved account id attached to the incoming metadata.
func (c *InterceptorConfig) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	accountID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(c.MetadataKeyToken); len(values) > 0 {
			token := strings.TrimPrefix(values[0], "Bearer ")
			if c.Verify != nil && token != "" {
				if id, err := c.Verify(token); err == nil {
					accountID = id
				}
			}
		}
	}

	if accountID == "" && c.RequireAuth && !c.PublicMethods[fullMethod] {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	// Rebuild the metadata so a client-supplied account id key can never
	// masquerade as a verified one.
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	md = md.Copy()
	delete(md, c.MetadataKeyAccountID)
	if accountID != "" {
		md.Set(c.MetadataKeyAccountID, accountID)
	}
	return metadata.NewIncomingContext(ctx, md), nil
}

// UnaryAuthInterceptor returns a unary interceptor that verifies the bearer
// token in request metadata and exposes the account id to handlers via
// AccountIDFromContext.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.ensureDefaults()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is the streaming counterpart of UnaryAuthInterceptor.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.ensureDefaults()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
