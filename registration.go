package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// MinPasswordLength is the minimum accepted secret length for local
// registration and password updates.
const MinPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Credentials carries a local registration request.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateCredentials checks a local registration request before anything
// is hashed or persisted. A rejected secret must never reach the hasher.
func ValidateCredentials(creds *Credentials) *Error {
	if creds.Username == "" {
		return NewError(ErrCodeValidation, "Username is required", "username")
	}
	if creds.Email == "" {
		return NewError(ErrCodeValidation, "Email is required", "email")
	}
	if !emailRegex.MatchString(creds.Email) {
		return NewError(ErrCodeValidation, fmt.Sprintf("Email %q is incorrect", creds.Email), "email")
	}
	if len(creds.Password) < MinPasswordLength {
		return NewError(ErrCodeValidation,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), "password")
	}
	return nil
}

// Registration is the shared post-condition of every registration path: a
// persisted account (credential hash stripped) and a session token bound to
// its id.
type Registration struct {
	Account *Account `json:"account"`
	Token   string   `json:"token"`
}

// RegistrationService orchestrates account creation for each identity
// source. All three entry points share one shape: validate/verify, hash a
// credential, insert the account, issue a token bound to the account id,
// then notify best-effort.
type RegistrationService struct {
	Store    CredentialStore
	Hasher   *PasswordHasher
	Issuer   *TokenIssuer
	Google   OAuthVerifier
	Facebook OAuthVerifier
	Notifier Notifier
	Logger   *slog.Logger
}

func (s *RegistrationService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RegisterLocal registers an account from a self-chosen username, email and
// password.
func (s *RegistrationService) RegisterLocal(ctx context.Context, creds *Credentials) (*Registration, error) {
	if err := ValidateCredentials(creds); err != nil {
		return nil, err
	}

	// Courtesy pre-checks for friendlier conflict messages. Insert remains
	// the atomic enforcement point; concurrent registrations racing past
	// these checks still fail there.
	if existing, err := s.Store.FindByUsername(ctx, creds.Username, false); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrCodeConflict,
			fmt.Sprintf("Username %q is already taken", creds.Username), "username")
	}
	if existing, err := s.Store.FindByEmail(ctx, creds.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewError(ErrCodeConflict,
			fmt.Sprintf("Email %q is already taken", creds.Email), "email")
	}

	hash, err := s.Hasher.Hash(creds.Password)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, &Account{
		Username:       creds.Username,
		Email:          creds.Email,
		CredentialHash: hash,
		Provider:       ProviderLocal,
	})
}

// RegisterGoogle registers an account from a client-supplied Google token.
// The token is exchanged for a verified profile first; nothing is persisted
// on any verification failure.
func (s *RegistrationService) RegisterGoogle(ctx context.Context, token string) (*Registration, error) {
	profile, err := s.verify(ctx, s.Google, ProviderGoogle, token)
	if err != nil {
		return nil, err
	}

	// The credential is derived from the provider subject, an opaque value
	// the user never sees. It is a lower-trust credential: Authenticate
	// refuses local password login for non-local accounts until a password
	// update converts them.
	hash, err := s.Hasher.Hash(profile.Subject)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, &Account{
		Username:       usernameFromProfile(profile),
		Email:          profile.Email,
		CredentialHash: hash,
		Provider:       ProviderGoogle,
	})
}

// RegisterFacebook registers an account from a client-supplied Facebook
// token. The credential hash is derived from the verified email - the
// provider's raw identifiers are never stored as the credential.
func (s *RegistrationService) RegisterFacebook(ctx context.Context, token string) (*Registration, error) {
	profile, err := s.verify(ctx, s.Facebook, ProviderFacebook, token)
	if err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(profile.Email)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, &Account{
		Username:       usernameFromProfile(profile),
		Email:          profile.Email,
		CredentialHash: hash,
		Provider:       ProviderFacebook,
	})
}

func (s *RegistrationService) verify(ctx context.Context, verifier OAuthVerifier, provider, token string) (*Profile, error) {
	if verifier == nil {
		return nil, NewError(ErrCodeExternalService,
			fmt.Sprintf("%s verification is not configured", provider), "")
	}
	profile, err := verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" || !emailRegex.MatchString(profile.Email) {
		return nil, NewError(ErrCodeValidation,
			fmt.Sprintf("%s profile has no usable email", provider), "email")
	}
	return profile, nil
}

// finish inserts the account, issues a token bound to its id and fires the
// post-registration notifications. The store's uniqueness constraint is the
// last word on conflicts for every path.
func (s *RegistrationService) finish(ctx context.Context, acct *Account) (*Registration, error) {
	inserted, err := s.Store.Insert(ctx, acct)
	if err != nil {
		return nil, err
	}

	token, err := s.Issuer.Issue(inserted.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.dispatch(inserted.Email, NotifyWelcome)
	s.dispatch(inserted.Email, NotifyCoupon)

	return &Registration{Account: inserted.Sanitized(), Token: token}, nil
}

// dispatch invokes the notifier without blocking the caller's response.
// Failures are logged and never surface to the registration result.
func (s *RegistrationService) dispatch(email string, kind NotificationKind) {
	if s.Notifier == nil {
		return
	}
	go func() {
		if err := s.Notifier.Notify(email, kind); err != nil {
			s.logger().Warn("notification failed", "kind", string(kind), "email", email, "err", err)
		}
	}()
}

// usernameFromProfile derives a username for OAuth-sourced accounts: the
// provider's display name, falling back to the email's local part.
func usernameFromProfile(p *Profile) string {
	name := strings.TrimSpace(p.DisplayName)
	if name != "" {
		return name
	}
	name = p.Email
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	return name
}
