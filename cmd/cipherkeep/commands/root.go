package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cipherkeep/internal/app"
	"cipherkeep/internal/config"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/logging"
)

var (
	cfgFile   string
	home      string
	serverURL string

	cfg *config.Config
	log *slog.Logger
)

// Execute runs the root command. Errors are already reported on stderr.
func Execute() error {
	root := &cobra.Command{
		Use:           "cipherkeep",
		Short:         "End-to-end encryption key management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(cfgFile)
			if err != nil {
				return err
			}
			if home != "" {
				v.Set("home", home)
			}
			if serverURL != "" {
				v.Set("server_url", serverURL)
			}
			if cfg, err = config.Parse(v); err != nil {
				return err
			}
			log = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.cipherkeep)")
	root.PersistentFlags().StringVar(&serverURL, "server", "", "key directory URL")

	root.AddCommand(
		signupCmd(),
		loginCmd(),
		registerCmd(),
		resumeCmd(),
		statusCmd(),
		replenishCmd(),
		fingerprintCmd(),
		startChatCmd(),
		acceptCmd(),
		trustCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil {
		report(err)
	}
	return err
}

// withApp opens the app for one command and closes it afterwards.
func withApp(ctx context.Context, password string, fn func(*app.App) error) error {
	a, err := app.Open(ctx, cfg, password, log)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

// vaultPassword returns the password only when the vault is sealed.
func vaultPassword() (string, error) {
	if !cfg.Vault.Seal {
		return "", nil
	}
	return askPassword("Password: ")
}

func report(err error) {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", fe.Reason.UserMessage())
	if log != nil {
		log.Debug("command failed", "reason", fe.Reason, "err", err)
	}
}
