package accounts

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
)

// Middleware extracts the authenticated account id from a request. It
// checks the Authorization header (with or without a Bearer prefix), then
// the auth token cookie, then the scs session, verifying each candidate
// against the issuer until one yields a subject.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	AuthTokenSessionVar string
	Session             *scs.SessionManager
	Issuer              *TokenIssuer
}

// EnsureDefaults fills in reasonable values for unset fields.
func (m *Middleware) EnsureDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.AuthTokenCookieName == "" {
		m.AuthTokenCookieName = "accountsAuthToken"
	}
	if m.AuthTokenSessionVar == "" {
		m.AuthTokenSessionVar = m.AuthTokenCookieName
	}
}

// AccountID returns the account id the request's token was issued for, or
// "" when no candidate token verifies.
func (m *Middleware) AccountID(r *http.Request) string {
	m.EnsureDefaults()
	if m.Issuer == nil {
		slog.Warn("No token issuer configured on auth middleware")
		return ""
	}

	var candidates []string
	for _, v := range r.Header.Values(m.AuthTokenHeaderName) {
		candidates = append(candidates, strings.TrimPrefix(v, "Bearer "))
	}
	for _, cookie := range r.CookiesNamed(m.AuthTokenCookieName) {
		if cookie.Value != "" {
			candidates = append(candidates, cookie.Value)
		}
	}
	if m.Session != nil {
		if tok := m.Session.GetString(r.Context(), m.AuthTokenSessionVar); tok != "" {
			candidates = append(candidates, tok)
		}
	}

	for _, tok := range candidates {
		id, err := m.Issuer.Verify(tok)
		if err == nil && id != "" {
			return id
		}
		if err != nil {
			slog.Warn("Error verifying token", "error", err)
		}
	}
	return ""
}
