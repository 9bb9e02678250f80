package accounts

import (
	"context"
	"log/slog"
)

// AuthResult is a successful authentication: the account (credential hash
// stripped) and a session token bound to its id.
type AuthResult struct {
	Account *Account `json:"account"`
	Token   string   `json:"token"`
}

// AuthenticationService verifies local credentials and issues tokens.
type AuthenticationService struct {
	Store  CredentialStore
	Hasher *PasswordHasher
	Issuer *TokenIssuer
	Logger *slog.Logger
}

func (s *AuthenticationService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Authenticate looks up the account by username and verifies the secret
// against its stored hash. Every failure - unknown username, wrong secret,
// or an account whose credential came from an OAuth provider - returns the
// same ErrCodeAuthFailed error, so callers cannot probe which part failed
// or whether the account exists.
func (s *AuthenticationService) Authenticate(ctx context.Context, username, secret string) (*AuthResult, error) {
	acct, err := s.Store.FindByUsername(ctx, username, true)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.CredentialHash == "" {
		return nil, authFailed()
	}

	// OAuth-derived credentials are lower trust and never valid for local
	// password login; a password update converts the account to local.
	if acct.Provider != "" && acct.Provider != ProviderLocal {
		return nil, authFailed()
	}

	if !s.Hasher.Verify(secret, acct.CredentialHash) {
		return nil, authFailed()
	}

	token, err := s.Issuer.Issue(acct.ID)
	if err != nil {
		s.logger().Error("failed to issue token", "account", acct.ID, "err", err)
		return nil, err
	}

	return &AuthResult{Account: acct.Sanitized(), Token: token}, nil
}

func authFailed() *Error {
	return NewError(ErrCodeAuthFailed, "Username or password is incorrect", "")
}
