// Package gorm provides a relational CredentialStore backend. It is
// driver-agnostic: the application opens the *gorm.DB and hands it in.
package gorm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/panyam/accounts"
)

// Store implements accounts.CredentialStore using GORM.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the accounts table and its unique indexes.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&AccountModel{})
}

func (s *Store) FindByUsername(ctx context.Context, username string, withCredential bool) (*accounts.Account, error) {
	return s.findOne(ctx, withCredential, "username = ?", username)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return s.findOne(ctx, false, "email = ?", email)
}

func (s *Store) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	return s.findOne(ctx, false, "id = ?", id)
}

func (s *Store) findOne(ctx context.Context, withCredential bool, query string, args ...any) (*accounts.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, append([]any{query}, args...)...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(withCredential), nil
}

func (s *Store) List(ctx context.Context) ([]*accounts.Account, error) {
	var models []AccountModel
	if err := s.db.WithContext(ctx).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*accounts.Account, len(models))
	for i := range models {
		out[i] = models[i].ToAccount(false)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	model := AccountToModel(account)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, translateConflict(err)
	}
	return model.ToAccount(true), nil
}

func (s *Store) Update(ctx context.Context, id string, patch *accounts.AccountPatch) (*accounts.Account, error) {
	var out *accounts.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model AccountModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // absent, reported as (nil, nil)
			}
			return err
		}

		updates := map[string]any{}
		if patch.Username != nil {
			updates["username"] = *patch.Username
		}
		if patch.Email != nil {
			updates["email"] = *patch.Email
		}
		if patch.CredentialHash != nil {
			updates["credential_hash"] = *patch.CredentialHash
		}
		if patch.Provider != nil {
			updates["provider"] = *patch.Provider
		}
		if patch.Inventory != nil {
			updates["inventory"] = JSONList(patch.Inventory)
		}

		if len(updates) > 0 {
			if err := tx.Model(&model).Updates(updates).Error; err != nil {
				return translateConflict(err)
			}
		}

		var updated AccountModel
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		out = updated.ToAccount(false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&AccountModel{}, "id = ?", id).Error
}

// translateConflict maps a unique-constraint violation to the typed
// conflict error. GORM surfaces ErrDuplicatedKey only on dialects with an
// error translator, so the message sniffing covers the rest.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry") {
		return accounts.WrapError(accounts.ErrCodeConflict, "username or email is already taken", err)
	}
	return err
}
