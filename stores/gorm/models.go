package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/panyam/accounts"
)

// JSONList stores the account inventory as a JSON array column.
type JSONList []any

func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]any{})
	}
	return json.Marshal(l)
}

func (l *JSONList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		// some drivers hand JSON columns back as strings
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("cannot scan %T into JSONList", value)
}

// AccountModel is the GORM model for accounts. The unique indexes on
// username and email are the store-level enforcement point for the
// uniqueness invariants - a racing insert loses at the constraint, not at
// an application-side pre-check.
type AccountModel struct {
	ID             string    `gorm:"primaryKey;size:64"`
	Username       string    `gorm:"size:255;uniqueIndex"`
	Email          string    `gorm:"size:320;uniqueIndex"`
	CredentialHash string    `gorm:"size:128"`
	Provider       string    `gorm:"size:32"`
	Inventory      JSONList  `gorm:"type:jsonb"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount(withCredential bool) *accounts.Account {
	out := &accounts.Account{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Provider:  m.Provider,
		CreatedAt: m.CreatedAt,
		Inventory: []any(m.Inventory),
	}
	if out.Inventory == nil {
		out.Inventory = []any{}
	}
	if withCredential {
		out.CredentialHash = m.CredentialHash
	}
	return out
}

func AccountToModel(a *accounts.Account) *AccountModel {
	return &AccountModel{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		CredentialHash: a.CredentialHash,
		Provider:       a.Provider,
		Inventory:      JSONList(a.Inventory),
		CreatedAt:      a.CreatedAt,
	}
}
