package accounts_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/panyam/accounts"
	"github.com/panyam/accounts/stores"
)

// stubVerifier returns a fixed profile or error without touching the network.
type stubVerifier struct {
	profile *accounts.Profile
	err     error

	lastToken string
}

func (v *stubVerifier) VerifyToken(ctx context.Context, token string) (*accounts.Profile, error) {
	v.lastToken = token
	if v.err != nil {
		return nil, v.err
	}
	return v.profile, nil
}

// recordingNotifier collects dispatched notifications on a channel so tests
// can wait for the fire-and-forget goroutines.
type recordingNotifier struct {
	sent chan accounts.NotificationKind
	err  error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan accounts.NotificationKind, 8)}
}

func (n *recordingNotifier) Notify(email string, kind accounts.NotificationKind) error {
	n.sent <- kind
	return n.err
}

func (n *recordingNotifier) await(t *testing.T, want accounts.NotificationKind) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case kind := <-n.sent:
			if kind == want {
				return
			}
		case <-deadline:
			t.Fatalf("notification %q never dispatched", want)
		}
	}
}

func newRegistrationService(store accounts.CredentialStore) *accounts.RegistrationService {
	return &accounts.RegistrationService{
		Store:  store,
		Hasher: &accounts.PasswordHasher{},
		Issuer: &accounts.TokenIssuer{SecretKey: "test-secret"},
	}
}

func TestRegisterLocal(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)
	notifier := newRecordingNotifier()
	svc.Notifier = notifier

	reg, err := svc.RegisterLocal(context.Background(), &accounts.Credentials{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("RegisterLocal failed: %v", err)
	}
	if reg.Account.ID == "" {
		t.Error("registered account should have an id")
	}
	if reg.Account.Provider != accounts.ProviderLocal {
		t.Errorf("expected provider local, got %q", reg.Account.Provider)
	}
	if reg.Account.CredentialHash != "" {
		t.Error("registration result should not expose the credential hash")
	}
	if reg.Account.CreatedAt.IsZero() {
		t.Error("registered account should have a creation time")
	}

	// The token's subject is the account id.
	sub, err := svc.Issuer.Verify(reg.Token)
	if err != nil {
		t.Fatalf("issued token should verify: %v", err)
	}
	if sub != reg.Account.ID {
		t.Errorf("token subject %q != account id %q", sub, reg.Account.ID)
	}

	// The stored credential is a hash of the password, not the password.
	stored, err := store.FindByUsername(context.Background(), "testuser", true)
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if stored.CredentialHash == "password123" || stored.CredentialHash == "" {
		t.Errorf("stored credential should be a hash, got %q", stored.CredentialHash)
	}

	notifier.await(t, accounts.NotifyWelcome)
}

func TestRegisterLocalValidation(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)

	tests := []struct {
		name  string
		creds accounts.Credentials
		field string
	}{
		{"missing username", accounts.Credentials{Email: "a@b.com", Password: "password123"}, "username"},
		{"missing email", accounts.Credentials{Username: "u", Password: "password123"}, "email"},
		{"malformed email", accounts.Credentials{Username: "u", Email: "not-an-email", Password: "password123"}, "email"},
		{"email without tld", accounts.Credentials{Username: "u", Email: "a@b", Password: "password123"}, "email"},
		{"short password", accounts.Credentials{Username: "u", Email: "a@b.com", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterLocal(context.Background(), &tt.creds)
			if !accounts.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var aerr *accounts.Error
			if !errors.As(err, &aerr) || aerr.Field != tt.field {
				t.Errorf("expected field %q, got %+v", tt.field, aerr)
			}
		})
	}

	// Nothing was persisted for any rejected request.
	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected registrations should persist nothing, found %d accounts", len(all))
	}
}

func TestRegisterLocalConflicts(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)

	first := accounts.Credentials{Username: "taken", Email: "taken@example.com", Password: "password123"}
	if _, err := svc.RegisterLocal(context.Background(), &first); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := svc.RegisterLocal(context.Background(), &accounts.Credentials{
		Username: "taken", Email: "other@example.com", Password: "password123",
	})
	if !accounts.IsConflict(err) {
		t.Errorf("duplicate username should conflict, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), `"taken"`) {
		t.Errorf("conflict message should name the username, got %v", err)
	}

	_, err = svc.RegisterLocal(context.Background(), &accounts.Credentials{
		Username: "other", Email: "taken@example.com", Password: "password123",
	})
	if !accounts.IsConflict(err) {
		t.Errorf("duplicate email should conflict, got %v", err)
	}
}

func TestRegisterGoogle(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)
	verifier := &stubVerifier{profile: &accounts.Profile{
		DisplayName: "Test User",
		Email:       "guser@example.com",
		Subject:     "google-subject-1",
	}}
	svc.Google = verifier

	reg, err := svc.RegisterGoogle(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("RegisterGoogle failed: %v", err)
	}
	if verifier.lastToken != "provider-token" {
		t.Errorf("verifier should receive the client token, got %q", verifier.lastToken)
	}
	if reg.Account.Username != "Test User" {
		t.Errorf("username should come from the profile display name, got %q", reg.Account.Username)
	}
	if reg.Account.Provider != accounts.ProviderGoogle {
		t.Errorf("expected provider google, got %q", reg.Account.Provider)
	}

	// The derived credential is a hash of the provider subject.
	stored, err := store.FindByUsername(context.Background(), "Test User", true)
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	hasher := &accounts.PasswordHasher{}
	if !hasher.Verify("google-subject-1", stored.CredentialHash) {
		t.Error("credential should be derived from the provider subject")
	}

	sub, err := svc.Issuer.Verify(reg.Token)
	if err != nil || sub != reg.Account.ID {
		t.Errorf("token subject should be the account id: sub=%q err=%v", sub, err)
	}
}

func TestRegisterFacebook(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)
	svc.Facebook = &stubVerifier{profile: &accounts.Profile{
		DisplayName: "FB User",
		Email:       "fbuser@example.com",
		Subject:     "fb-id-9",
	}}

	reg, err := svc.RegisterFacebook(context.Background(), "fb-token")
	if err != nil {
		t.Fatalf("RegisterFacebook failed: %v", err)
	}
	if reg.Account.Provider != accounts.ProviderFacebook {
		t.Errorf("expected provider facebook, got %q", reg.Account.Provider)
	}

	// Facebook credentials are derived from the verified email.
	stored, err := store.FindByEmail(context.Background(), "fbuser@example.com")
	if err != nil || stored == nil {
		t.Fatalf("FindByEmail failed: %v %v", stored, err)
	}
	full, err := store.FindByUsername(context.Background(), stored.Username, true)
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	hasher := &accounts.PasswordHasher{}
	if !hasher.Verify("fbuser@example.com", full.CredentialHash) {
		t.Error("credential should be derived from the verified email")
	}
}

func TestRegisterProviderFailure(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)

	tests := []struct {
		name  string
		setup func()
		check func(error) bool
	}{
		{
			"invalid token",
			func() {
				svc.Google = &stubVerifier{err: accounts.NewError(accounts.ErrCodeInvalidToken, "Invalid Value", "")}
			},
			accounts.IsInvalidToken,
		},
		{
			"provider unreachable",
			func() {
				svc.Google = &stubVerifier{err: accounts.NewError(accounts.ErrCodeExternalService, "connection refused", "")}
			},
			accounts.IsExternal,
		},
		{
			"verifier not configured",
			func() { svc.Google = nil },
			accounts.IsExternal,
		},
		{
			"profile without email",
			func() { svc.Google = &stubVerifier{profile: &accounts.Profile{Subject: "s"}} },
			accounts.IsValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			_, err := svc.RegisterGoogle(context.Background(), "tok")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("no account should be created on verification failure, found %d", len(all))
	}
}

func TestUsernameFallsBackToEmailLocalPart(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)
	svc.Google = &stubVerifier{profile: &accounts.Profile{
		Email:   "noname@example.com",
		Subject: "g-sub",
	}}

	reg, err := svc.RegisterGoogle(context.Background(), "tok")
	if err != nil {
		t.Fatalf("RegisterGoogle failed: %v", err)
	}
	if reg.Account.Username != "noname" {
		t.Errorf("expected username noname, got %q", reg.Account.Username)
	}
}

func TestNotifierFailureDoesNotFailRegistration(t *testing.T) {
	store := stores.NewMemoryStore()
	svc := newRegistrationService(store)
	notifier := newRecordingNotifier()
	notifier.err = fmt.Errorf("smtp down")
	svc.Notifier = notifier

	reg, err := svc.RegisterLocal(context.Background(), &accounts.Credentials{
		Username: "u1", Email: "u1@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("registration should succeed despite notifier failure: %v", err)
	}
	if reg.Token == "" {
		t.Error("registration should still return a token")
	}
	notifier.await(t, accounts.NotifyWelcome)
}
