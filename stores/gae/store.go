// Package gae provides a CredentialStore backend on Google Cloud
// Datastore. Uniqueness is enforced with name-keyed reservation entities
// checked and written in the same transaction as the account, so two
// concurrent registrations for the same username or email cannot both
// commit.
package gae

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/panyam/accounts"
)

// Store implements accounts.CredentialStore using Google Cloud Datastore
type Store struct {
	client    *datastore.Client
	namespace string
}

// NewStore creates a Datastore-backed store. The namespace may be empty.
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) FindByUsername(ctx context.Context, username string, withCredential bool) (*accounts.Account, error) {
	return s.findByReservation(ctx, KindUsername, username, withCredential)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return s.findByReservation(ctx, KindEmail, email, false)
}

func (s *Store) findByReservation(ctx context.Context, kind, name string, withCredential bool) (*accounts.Account, error) {
	var res ReservationEntity
	if err := s.client.Get(ctx, s.key(kind, name), &res); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, nil
		}
		return nil, err
	}
	return s.FindByIDWithCredential(ctx, res.AccountID, withCredential)
}

func (s *Store) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	return s.FindByIDWithCredential(ctx, id, false)
}

func (s *Store) FindByIDWithCredential(ctx context.Context, id string, withCredential bool) (*accounts.Account, error) {
	var entity AccountEntity
	if err := s.client.Get(ctx, s.key(KindAccount, id), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, nil
		}
		return nil, err
	}
	return entity.ToAccount(id, withCredential), nil
}

func (s *Store) List(ctx context.Context) ([]*accounts.Account, error) {
	query := datastore.NewQuery(KindAccount).Order("created_at")
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	var out []*accounts.Account
	it := s.client.Run(ctx, query)
	for {
		var entity AccountEntity
		key, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity.ToAccount(key.Name, false))
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	entity := accountToEntity(account, s.key(KindAccount, id), now)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var res ReservationEntity
		usernameKey := s.key(KindUsername, account.Username)
		if err := tx.Get(usernameKey, &res); err == nil {
			return accounts.NewError(accounts.ErrCodeConflict,
				"Username \""+account.Username+"\" is already taken", "username")
		} else if err != datastore.ErrNoSuchEntity {
			return err
		}

		emailKey := s.key(KindEmail, account.Email)
		if err := tx.Get(emailKey, &res); err == nil {
			return accounts.NewError(accounts.ErrCodeConflict,
				"Email \""+account.Email+"\" is already taken", "email")
		} else if err != datastore.ErrNoSuchEntity {
			return err
		}

		reservation := &ReservationEntity{AccountID: id}
		if _, err := tx.Put(usernameKey, reservation); err != nil {
			return err
		}
		if _, err := tx.Put(emailKey, reservation); err != nil {
			return err
		}
		_, err := tx.Put(entity.Key, entity)
		return err
	})
	if err != nil {
		return nil, err
	}

	return entity.ToAccount(id, true), nil
}

func (s *Store) Update(ctx context.Context, id string, patch *accounts.AccountPatch) (*accounts.Account, error) {
	var out *accounts.Account
	accountKey := s.key(KindAccount, id)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity AccountEntity
		if err := tx.Get(accountKey, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return nil // absent, reported as (nil, nil)
			}
			return err
		}

		if patch.Username != nil && *patch.Username != entity.Username {
			if err := s.moveReservation(tx, KindUsername, entity.Username, *patch.Username, id,
				"Username \""+*patch.Username+"\" is already taken", "username"); err != nil {
				return err
			}
			entity.Username = *patch.Username
		}
		if patch.Email != nil && *patch.Email != entity.Email {
			if err := s.moveReservation(tx, KindEmail, entity.Email, *patch.Email, id,
				"Email \""+*patch.Email+"\" is already taken", "email"); err != nil {
				return err
			}
			entity.Email = *patch.Email
		}
		if patch.CredentialHash != nil {
			entity.CredentialHash = *patch.CredentialHash
		}
		if patch.Provider != nil {
			entity.Provider = *patch.Provider
		}
		if patch.Inventory != nil {
			entity.Inventory, _ = json.Marshal(patch.Inventory)
		}
		entity.UpdatedAt = time.Now().UTC()

		if _, err := tx.Put(accountKey, &entity); err != nil {
			return err
		}
		out = entity.ToAccount(id, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// moveReservation releases the old name and claims the new one, failing
// with a conflict error when another account holds it.
func (s *Store) moveReservation(tx *datastore.Transaction, kind, oldName, newName, accountID, conflictMsg, field string) error {
	var res ReservationEntity
	newKey := s.key(kind, newName)
	if err := tx.Get(newKey, &res); err == nil {
		if res.AccountID != accountID {
			return accounts.NewError(accounts.ErrCodeConflict, conflictMsg, field)
		}
	} else if err != datastore.ErrNoSuchEntity {
		return err
	}
	if err := tx.Delete(s.key(kind, oldName)); err != nil {
		return err
	}
	_, err := tx.Put(newKey, &ReservationEntity{AccountID: accountID})
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	accountKey := s.key(KindAccount, id)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity AccountEntity
		if err := tx.Get(accountKey, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return nil // idempotent
			}
			return err
		}
		if err := tx.Delete(s.key(KindUsername, entity.Username)); err != nil {
			return err
		}
		if err := tx.Delete(s.key(KindEmail, entity.Email)); err != nil {
			return err
		}
		return tx.Delete(accountKey)
	})
	return err
}
