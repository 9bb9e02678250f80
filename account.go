package accounts

import "time"

// Providers an account's credential can originate from.
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Account is a persisted identity record. The credential hash is never
// serialized and never leaves the store unless a caller explicitly asks
// for it (see CredentialStore.FindByUsername).
type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	CredentialHash string    `json:"-"`
	Provider       string    `json:"provider"`
	CreatedAt      time.Time `json:"createdAt"`
	Inventory      []any     `json:"inventory"`
}

// Sanitized returns a copy of the account with the credential hash removed.
func (a *Account) Sanitized() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.CredentialHash = ""
	return &out
}

// AccountPatch is a partial update applied by CredentialStore.Update.
// Nil fields are left unchanged. The credential hash is always set by the
// service layer after re-hashing - a raw secret never reaches the store.
type AccountPatch struct {
	Username       *string
	Email          *string
	CredentialHash *string
	Provider       *string
	Inventory      []any
}
