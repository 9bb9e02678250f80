package accounts

import (
	"context"
	"fmt"
)

// AccountUpdate carries a partial account update. Empty fields are left
// unchanged; a nil Inventory leaves the inventory alone.
type AccountUpdate struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Inventory []any  `json:"inventory"`
}

// AccountService exposes account reads and lifecycle mutations outside the
// registration/authentication flows.
type AccountService struct {
	Store  CredentialStore
	Hasher *PasswordHasher
}

// Get returns the account with the given id, or (nil, nil) when absent.
// The credential hash is never included.
func (s *AccountService) Get(ctx context.Context, id string) (*Account, error) {
	return s.Store.FindByID(ctx, id)
}

// List returns all accounts, credential hashes omitted.
func (s *AccountService) List(ctx context.Context) ([]*Account, error) {
	return s.Store.List(ctx)
}

// Update applies a partial update to an account. Unknown ids fail with
// ErrCodeNotFound. A username change re-checks uniqueness (the store's
// constraint is authoritative). A new secret is validated and re-hashed
// before persisting, and converts the account's credential to a local one -
// this is the password-reset step that upgrades OAuth-derived credentials.
func (s *AccountService) Update(ctx context.Context, id string, upd *AccountUpdate) (*Account, error) {
	existing, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NewError(ErrCodeNotFound, "User not found", "")
	}

	patch := &AccountPatch{}

	if upd.Username != "" && upd.Username != existing.Username {
		if taken, err := s.Store.FindByUsername(ctx, upd.Username, false); err != nil {
			return nil, err
		} else if taken != nil {
			return nil, NewError(ErrCodeConflict,
				fmt.Sprintf("Username %q is already taken", upd.Username), "username")
		}
		patch.Username = &upd.Username
	}

	if upd.Email != "" && upd.Email != existing.Email {
		if !emailRegex.MatchString(upd.Email) {
			return nil, NewError(ErrCodeValidation,
				fmt.Sprintf("Email %q is incorrect", upd.Email), "email")
		}
		if taken, err := s.Store.FindByEmail(ctx, upd.Email); err != nil {
			return nil, err
		} else if taken != nil {
			return nil, NewError(ErrCodeConflict,
				fmt.Sprintf("Email %q is already taken", upd.Email), "email")
		}
		patch.Email = &upd.Email
	}

	if upd.Password != "" {
		if len(upd.Password) < MinPasswordLength {
			return nil, NewError(ErrCodeValidation,
				fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), "password")
		}
		hash, err := s.Hasher.Hash(upd.Password)
		if err != nil {
			return nil, err
		}
		provider := ProviderLocal
		patch.CredentialHash = &hash
		patch.Provider = &provider
	}

	if upd.Inventory != nil {
		patch.Inventory = upd.Inventory
	}

	updated, err := s.Store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// deleted between the lookup and the update
		return nil, NewError(ErrCodeNotFound, "User not found", "")
	}
	return updated.Sanitized(), nil
}

// Delete removes the account with the given id. Deleting an already-deleted
// id succeeds - removal is idempotent by identifier.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}
