// Command accountsvc serves the accounts HTTP API.  It wires the
// registration, authentication and account services to a credential store
// selected by configuration: Google Cloud Datastore when a project is
// configured, an in-memory store otherwise.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"

	"github.com/panyam/accounts"
	"github.com/panyam/accounts/oauth"
	"github.com/panyam/accounts/stores"
	gaestore "github.com/panyam/accounts/stores/gae"
)

type config struct {
	Addr      string `env:"ACCOUNTS_ADDR" envDefault:":7000"`
	JWTSecret string `env:"ACCOUNTS_JWT_SECRET,required"`
	JWTIssuer string `env:"ACCOUNTS_JWT_ISSUER" envDefault:"accounts"`

	BcryptCost int `env:"ACCOUNTS_BCRYPT_COST" envDefault:"10"`

	GoogleAudience    string `env:"ACCOUNTS_GOOGLE_AUDIENCE"`
	FacebookAppID     string `env:"ACCOUNTS_FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"ACCOUNTS_FACEBOOK_APP_SECRET"`

	DatastoreProject   string `env:"ACCOUNTS_DATASTORE_PROJECT"`
	DatastoreNamespace string `env:"ACCOUNTS_DATASTORE_NAMESPACE"`

	SessionLifetime time.Duration `env:"ACCOUNTS_SESSION_LIFETIME" envDefault:"24h"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := openStore(context.Background(), &cfg)
	if err != nil {
		logger.Error("Error opening credential store", "error", err)
		os.Exit(1)
	}

	hasher := &accounts.PasswordHasher{Cost: cfg.BcryptCost}
	issuer := &accounts.TokenIssuer{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	}

	registration := &accounts.RegistrationService{
		Store:    store,
		Hasher:   hasher,
		Issuer:   issuer,
		Google:   &oauth.GoogleVerifier{Audience: cfg.GoogleAudience},
		Facebook: &oauth.FacebookVerifier{AppID: cfg.FacebookAppID, AppSecret: cfg.FacebookAppSecret},
		Notifier: &accounts.ConsoleNotifier{},
		Logger:   logger,
	}

	session := scs.New()
	session.Lifetime = cfg.SessionLifetime

	api := &accounts.API{
		Registration:   registration,
		Authentication: &accounts.AuthenticationService{Store: store, Hasher: hasher, Issuer: issuer, Logger: logger},
		Accounts:       &accounts.AccountService{Store: store, Hasher: hasher},
		Issuer:         issuer,
		Session:        session,
		Logger:         logger,
	}

	logger.Info("Serving accounts API", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, api.Handler()); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config) (accounts.CredentialStore, error) {
	if cfg.DatastoreProject == "" {
		return stores.NewMemoryStore(), nil
	}
	client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
	if err != nil {
		return nil, err
	}
	return gaestore.NewStore(client, cfg.DatastoreNamespace), nil
}
