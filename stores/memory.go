// Package stores provides CredentialStore backends: an in-memory store for
// tests and development, with relational (gorm) and Cloud Datastore (gae)
// backends in subpackages.
package stores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panyam/accounts"
)

// MemoryStore is a mutex-guarded in-memory CredentialStore. Uniqueness
// checks and the insert happen under one lock, so concurrent registrations
// for the same username or email cannot both succeed - the same guarantee
// the persistent backends get from unique constraints and transactions.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]*accounts.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*accounts.Account)}
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string, withCredential bool) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Username == username {
			return clone(a, withCredential), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Email == email {
			return clone(a, false), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		return clone(a, false), nil
	}
	return nil, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*accounts.Account, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, clone(a, false))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Username == account.Username {
			return nil, usernameTaken(account.Username)
		}
		if a.Email == account.Email {
			return nil, emailTaken(account.Email)
		}
	}

	stored := clone(account, true)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	if stored.Inventory == nil {
		stored.Inventory = []any{}
	}
	s.byID[stored.ID] = stored
	return clone(stored, true), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch *accounts.AccountPatch) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[id]
	if !ok {
		return nil, nil
	}

	// All conflict checks happen before any field is touched, so a patch
	// that fails on one field leaves no partially-applied state behind.
	if patch.Username != nil && *patch.Username != existing.Username {
		for _, a := range s.byID {
			if a.ID != id && a.Username == *patch.Username {
				return nil, usernameTaken(*patch.Username)
			}
		}
	}
	if patch.Email != nil && *patch.Email != existing.Email {
		for _, a := range s.byID {
			if a.ID != id && a.Email == *patch.Email {
				return nil, emailTaken(*patch.Email)
			}
		}
	}

	if patch.Username != nil {
		existing.Username = *patch.Username
	}
	if patch.Email != nil {
		existing.Email = *patch.Email
	}
	if patch.CredentialHash != nil {
		existing.CredentialHash = *patch.CredentialHash
	}
	if patch.Provider != nil {
		existing.Provider = *patch.Provider
	}
	if patch.Inventory != nil {
		existing.Inventory = append([]any(nil), patch.Inventory...)
	}

	return clone(existing, false), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func clone(a *accounts.Account, withCredential bool) *accounts.Account {
	out := *a
	if a.Inventory != nil {
		out.Inventory = make([]any, len(a.Inventory))
		copy(out.Inventory, a.Inventory)
	}
	if !withCredential {
		out.CredentialHash = ""
	}
	return &out
}

func usernameTaken(username string) error {
	return accounts.NewError(accounts.ErrCodeConflict,
		"Username \""+username+"\" is already taken", "username")
}

func emailTaken(email string) error {
	return accounts.NewError(accounts.ErrCodeConflict,
		"Email \""+email+"\" is already taken", "email")
}
