package gae

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/panyam/accounts"
)

// Kind constants for Datastore entities
const (
	KindAccount = "Account"

	// KindUsername and KindEmail are name-keyed reservation entities; a
	// transactional existence check on them is what makes Insert atomic.
	KindUsername = "AccountUsername"
	KindEmail    = "AccountEmail"
)

// AccountEntity is the Datastore entity for accounts
type AccountEntity struct {
	Key            *datastore.Key `datastore:"__key__"`
	Username       string         `datastore:"username"`
	Email          string         `datastore:"email"`
	CredentialHash string         `datastore:"credential_hash,noindex"`
	Provider       string         `datastore:"provider"`
	Inventory      []byte         `datastore:"inventory,noindex"` // JSON encoded
	CreatedAt      time.Time      `datastore:"created_at"`
	UpdatedAt      time.Time      `datastore:"updated_at"`
}

// ReservationEntity marks a username or email as taken by an account
type ReservationEntity struct {
	AccountID string `datastore:"account_id"`
}

func (e *AccountEntity) ToAccount(id string, withCredential bool) *accounts.Account {
	var inventory []any
	if e.Inventory != nil {
		json.Unmarshal(e.Inventory, &inventory)
	}
	if inventory == nil {
		inventory = []any{}
	}

	out := &accounts.Account{
		ID:        id,
		Username:  e.Username,
		Email:     e.Email,
		Provider:  e.Provider,
		CreatedAt: e.CreatedAt,
		Inventory: inventory,
	}
	if withCredential {
		out.CredentialHash = e.CredentialHash
	}
	return out
}

func accountToEntity(a *accounts.Account, key *datastore.Key, now time.Time) *AccountEntity {
	var inventoryBytes []byte
	if a.Inventory != nil {
		inventoryBytes, _ = json.Marshal(a.Inventory)
	}
	return &AccountEntity{
		Key:            key,
		Username:       a.Username,
		Email:          a.Email,
		CredentialHash: a.CredentialHash,
		Provider:       a.Provider,
		Inventory:      inventoryBytes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
