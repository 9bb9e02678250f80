package accounts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// API is the HTTP adapter over the account services. It owns no business
// rules beyond decoding requests, mapping service errors to statuses and
// persisting issued tokens into the session (when a session manager is
// configured) so browser clients can call /current without a header.
type API struct {
	Registration   *RegistrationService
	Authentication *AuthenticationService
	Accounts       *AccountService
	Issuer         *TokenIssuer

	// Session is optional. When set the router is wrapped in
	// Session.LoadAndSave and successful logins put the token in the session.
	Session *scs.SessionManager

	Middleware Middleware
	Logger     *slog.Logger
}

// EnsureDefaults wires up unset fields and returns the receiver for chaining.
func (a *API) EnsureDefaults() *API {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Middleware.Issuer == nil {
		a.Middleware.Issuer = a.Issuer
	}
	if a.Middleware.Session == nil {
		a.Middleware.Session = a.Session
	}
	a.Middleware.EnsureDefaults()
	return a
}

// Handler builds the route table.  All routes are mounted at the root so a
// caller can place the whole API under a prefix of its choosing, eg:
//
//	http.Handle("/api/users/", http.StripPrefix("/api/users", api.Handler()))
func (a *API) Handler() http.Handler {
	a.EnsureDefaults()
	r := mux.NewRouter()
	r.HandleFunc("/authenticate", a.onAuthenticate).Methods(http.MethodPost)
	r.HandleFunc("/registerEmail", a.onRegisterEmail).Methods(http.MethodPost)
	r.HandleFunc("/registerGoogle", a.onRegisterGoogle).Methods(http.MethodPost)
	r.HandleFunc("/registerFacebook", a.onRegisterFacebook).Methods(http.MethodPost)
	r.HandleFunc("/", a.onList).Methods(http.MethodGet)
	r.HandleFunc("/current", a.onCurrent).Methods(http.MethodGet)
	r.HandleFunc("/{id}", a.onGet).Methods(http.MethodGet)
	r.HandleFunc("/{id}", a.onUpdate).Methods(http.MethodPut)
	r.HandleFunc("/{id}", a.onDelete).Methods(http.MethodDelete)
	if a.Session != nil {
		return a.Session.LoadAndSave(r)
	}
	return r
}

func (a *API) onAuthenticate(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		a.sendError(w, NewError(ErrCodeValidation, "Invalid request body", ""))
		return
	}
	result, err := a.Authentication.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.saveSession(r, result.Account.ID, result.Token)
	a.sendJSON(w, http.StatusOK, result)
}

func (a *API) onRegisterEmail(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		a.sendError(w, NewError(ErrCodeValidation, "Invalid request body", ""))
		return
	}
	a.finishRegistration(w, r)(a.Registration.RegisterLocal(r.Context(), &creds))
}

func (a *API) onRegisterGoogle(w http.ResponseWriter, r *http.Request) {
	token, ok := a.decodeProviderToken(w, r)
	if !ok {
		return
	}
	a.finishRegistration(w, r)(a.Registration.RegisterGoogle(r.Context(), token))
}

func (a *API) onRegisterFacebook(w http.ResponseWriter, r *http.Request) {
	token, ok := a.decodeProviderToken(w, r)
	if !ok {
		return
	}
	a.finishRegistration(w, r)(a.Registration.RegisterFacebook(r.Context(), token))
}

func (a *API) decodeProviderToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		AccessToken string `json:"accessToken"`
		IDToken     string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.sendError(w, NewError(ErrCodeValidation, "Invalid request body", ""))
		return "", false
	}
	token := body.AccessToken
	if token == "" {
		token = body.IDToken
	}
	if token == "" {
		a.sendError(w, NewError(ErrCodeValidation, "A provider token is required", "accessToken"))
		return "", false
	}
	return token, true
}

func (a *API) finishRegistration(w http.ResponseWriter, r *http.Request) func(*Registration, error) {
	return func(reg *Registration, err error) {
		if err != nil {
			a.sendError(w, err)
			return
		}
		a.saveSession(r, reg.Account.ID, reg.Token)
		a.sendJSON(w, http.StatusOK, reg)
	}
}

func (a *API) onList(w http.ResponseWriter, r *http.Request) {
	accountsList, err := a.Accounts.List(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, accountsList)
}

func (a *API) onCurrent(w http.ResponseWriter, r *http.Request) {
	id := a.Middleware.AccountID(r)
	if id == "" {
		a.sendJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
		return
	}
	account, err := a.Accounts.Get(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if account == nil {
		a.sendError(w, NewError(ErrCodeNotFound, "User not found", ""))
		return
	}
	a.sendJSON(w, http.StatusOK, account)
}

func (a *API) onGet(w http.ResponseWriter, r *http.Request) {
	account, err := a.Accounts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.sendError(w, err)
		return
	}
	if account == nil {
		a.sendError(w, NewError(ErrCodeNotFound, "User not found", ""))
		return
	}
	a.sendJSON(w, http.StatusOK, account)
}

func (a *API) onUpdate(w http.ResponseWriter, r *http.Request) {
	var update AccountUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		a.sendError(w, NewError(ErrCodeValidation, "Invalid request body", ""))
		return
	}
	if _, err := a.Accounts.Update(r.Context(), mux.Vars(r)["id"], &update); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, map[string]any{})
}

func (a *API) onDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Accounts.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, map[string]any{})
}

func (a *API) saveSession(r *http.Request, accountID, token string) {
	if a.Session == nil {
		return
	}
	a.Session.Put(r.Context(), "loggedInAccountId", accountID)
	a.Session.Put(r.Context(), a.Middleware.AuthTokenSessionVar, token)
}

func (a *API) sendJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		a.Logger.Error("Error encoding response", "error", err)
	}
}

func (a *API) sendError(w http.ResponseWriter, err error) {
	var aerr *Error
	if !errors.As(err, &aerr) {
		a.Logger.Error("Unexpected error serving request", "error", err)
		a.sendJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}
	body := map[string]string{"message": aerr.Message}
	if aerr.Field != "" {
		body["field"] = aerr.Field
	}
	if aerr.Code != ErrCodeAuthFailed {
		body["code"] = aerr.Code
	}
	a.sendJSON(w, statusForCode(aerr.Code), body)
}

func statusForCode(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeAuthFailed:
		return http.StatusBadRequest
	case ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
