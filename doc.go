// Package accounts provides account registration, authentication and
// session token issuance for Go services.
//
// Accounts can be created three ways: with a local email/password pair, or
// by presenting a Google or Facebook token which is verified against the
// provider before an account is derived from the returned profile. Every
// path ends the same way: a stored credential hash and a signed JWT whose
// subject is the new account's id.
//
// # Core pieces
//
// CredentialStore: persistence for accounts. Lookups return (nil, nil) for
// absent records and Insert is the single point where username and email
// uniqueness is enforced atomically. Backends live under stores/ (memory,
// gorm, datastore).
//
// RegistrationService: validates input (or verifies a provider token via an
// OAuthVerifier), derives and hashes the credential, inserts the account
// and issues its first session token.
//
// AuthenticationService: local password login. All failure modes collapse
// into one auth_failed error so callers can't probe which part was wrong.
//
// AccountService: lookup, listing, profile updates and deletion. Changing
// a password re-derives the credential hash and converts the account to a
// local-provider account.
//
// # Basic usage
//
//	store := stores.NewMemoryStore()
//	hasher := &accounts.PasswordHasher{}
//	issuer := &accounts.TokenIssuer{SecretKey: secret}
//
//	api := &accounts.API{
//	    Registration: &accounts.RegistrationService{
//	        Store:  store,
//	        Hasher: hasher,
//	        Issuer: issuer,
//	        Google: &oauth.GoogleVerifier{},
//	    },
//	    Authentication: &accounts.AuthenticationService{Store: store, Hasher: hasher, Issuer: issuer},
//	    Accounts:       &accounts.AccountService{Store: store, Hasher: hasher},
//	    Issuer:         issuer,
//	}
//	http.Handle("/api/users/", http.StripPrefix("/api/users", api.Handler()))
//
// Errors returned by every service are *accounts.Error values carrying a
// stable code; the HTTP adapter maps codes to statuses and gRPC services
// can do the same via the grpc subpackage's interceptor.
package accounts
