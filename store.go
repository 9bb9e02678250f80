package accounts

import "context"

// CredentialStore is the persistence contract for account records.
//
// Lookup methods return (nil, nil) when no account matches - absence is a
// normal result, not an error. Insert is the single enforcement point for
// the username/email uniqueness invariants: backends must use a unique
// constraint or a transactional check so that two concurrent registrations
// for the same username/email cannot both succeed, and must return an
// ErrCodeConflict error when one would. A separate check-then-insert in the
// service layer is advisory only.
//
// Lookup results never include the credential hash unless explicitly
// requested via FindByUsername's withCredential flag (used only by
// authentication).
type CredentialStore interface {
	// FindByUsername returns the account with the given username, or (nil, nil).
	// The credential hash is included only when withCredential is true.
	FindByUsername(ctx context.Context, username string, withCredential bool) (*Account, error)

	// FindByEmail returns the account with the given email, or (nil, nil).
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByID returns the account with the given id, or (nil, nil).
	FindByID(ctx context.Context, id string) (*Account, error)

	// List returns all accounts, credential hashes omitted.
	List(ctx context.Context) ([]*Account, error)

	// Insert persists a new account, assigning its id and creation time.
	// Returns an ErrCodeConflict error if the username or email is taken.
	Insert(ctx context.Context, account *Account) (*Account, error)

	// Update applies a partial update. Returns (nil, nil) when no account
	// has the given id. A username/email change that collides with another
	// account returns an ErrCodeConflict error.
	Update(ctx context.Context, id string, patch *AccountPatch) (*Account, error)

	// Delete removes the account with the given id. Deleting an unknown id
	// is a no-op.
	Delete(ctx context.Context, id string) error
}
