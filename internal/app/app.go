package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"cipherkeep/internal/config"
	"cipherkeep/internal/remote"
	"cipherkeep/internal/services/account"
	"cipherkeep/internal/services/session"
	"cipherkeep/internal/store"
	"cipherkeep/internal/vault"
)

// App bundles the client-side services for the CLI.
type App struct {
	Config    *config.Config
	Vault     *vault.Vault
	Directory *remote.HTTP
	Accounts  *account.Service
	Sessions  *session.Service
	Log       *slog.Logger
}

// Open constructs the dependency graph from cfg. password is only used
// when the vault is sealed.
func Open(ctx context.Context, cfg *config.Config, password string, log *slog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, errors.Wrap(err, "create home")
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	opts := []vault.Option{vault.WithLogger(log.With("component", "vault"))}
	if cfg.Vault.Seal {
		if password == "" {
			_ = backend.Close()
			return nil, errors.New("the vault is sealed; a password is required")
		}
		sealer, err := store.NewPassphraseSealer(password, store.DefaultScryptParams())
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		opts = append(opts, vault.WithSealer(sealer))
	}
	v, err := vault.Open(ctx, backend, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	dir := remote.NewHTTP(cfg.ServerURL)
	dir.HTTP = &http.Client{Timeout: cfg.Timeout}

	accounts, err := account.New(dir, v,
		account.WithParams(cfg.KDF),
		account.WithServerURL(cfg.ServerURL),
		account.WithLogger(log.With("component", "account")),
	)
	if err != nil {
		_ = v.Close(ctx)
		return nil, err
	}
	return &App{
		Config:    cfg,
		Vault:     v,
		Directory: dir,
		Accounts:  accounts,
		Sessions:  session.New(dir, v, log.With("component", "session")),
		Log:       log,
	}, nil
}

// Close flushes and closes the vault.
func (a *App) Close(ctx context.Context) error {
	return a.Vault.Close(ctx)
}

func openBackend(cfg *config.Config) (vault.Backend, error) {
	switch cfg.Vault.Backend {
	case "sqlite":
		return store.NewSQLiteBackend(filepath.Join(cfg.Home, "vault.db"))
	default:
		return store.NewFileBackend(filepath.Join(cfg.Home, "vault"))
	}
}
