package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cipherkeep/internal/app"
	"cipherkeep/internal/domain"
)

func signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup <username>",
		Short: "Create an account and register this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askNewPassword()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				p, err := a.Accounts.SignUp(cmd.Context(), domain.Username(args[0]), pw)
				if err != nil {
					return err
				}
				printProfile(cmd, p)
				return nil
			})
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Recover this account's device keys from custody",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				p, err := a.Accounts.LogIn(cmd.Context(), domain.Username(args[0]), pw)
				if err != nil {
					return err
				}
				printProfile(cmd, p)
				return nil
			})
		},
	}
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Replace this device's keys with a new device identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				p, err := a.Accounts.RegisterDevice(cmd.Context(), pw)
				if err != nil {
					return err
				}
				printProfile(cmd, p)
				return nil
			})
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Finish an interrupted device registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				p, err := a.Accounts.Resume(cmd.Context(), pw)
				if err != nil {
					return err
				}
				printProfile(cmd, p)
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this device's registration state and prekey pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				st, err := a.Accounts.Status(cmd.Context(), pw)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "device:    %s\n", st.DeviceID)
				fmt.Fprintf(out, "state:     %s\n", st.State)
				fmt.Fprintf(out, "prekeys:   %d\n", st.AvailablePreKeys)
				return nil
			})
		},
	}
}

func replenishCmd() *cobra.Command {
	var minimum int
	cmd := &cobra.Command{
		Use:   "replenish",
		Short: "Upload more one-time prekeys when the pool runs low",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				n, err := a.Accounts.Replenish(cmd.Context(), pw, minimum)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d one-time prekeys\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&minimum, "min", 50, "keep at least this many prekeys on the server")
	return cmd
}

func printProfile(cmd *cobra.Command, p domain.Profile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "username:  %s\n", p.Username)
	fmt.Fprintf(out, "address:   %s\n", p.Address())
	fmt.Fprintf(out, "state:     %s\n", p.State)
}
