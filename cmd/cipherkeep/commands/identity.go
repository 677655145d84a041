package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cipherkeep/internal/app"
	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

func fingerprintCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print this device's identity fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := vaultPassword()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				id, ok, err := a.Vault.IdentityKeyPair()
				if err != nil {
					return err
				}
				if !ok {
					return failure.FailedPrecondition("no identity on this device; run signup or login")
				}
				p, _, err := a.Vault.Profile()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(struct {
						Address  domain.Address        `json:"address"`
						Identity domain.IdentityPublic `json:"identity"`
					}{p.Address(), id.Public()})
				}
				fmt.Fprintf(out, "address:     %s\n", p.Address())
				fmt.Fprintf(out, "fingerprint: %s\n", crypto.IdentityFingerprint(id.Public()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the address and public identity as JSON")
	return cmd
}

func trustCmd() *cobra.Command {
	var dh, signing string
	cmd := &cobra.Command{
		Use:   "trust <address>",
		Short: "Pin a peer device's new identity after verification",
		Long: "Pin a peer device's identity, replacing any earlier pin. Only do this\n" +
			"after comparing safety numbers with the peer over a trusted channel.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseAddress(args[0])
			if err != nil {
				return failure.Wrap(failure.ReasonInvalidArgument, "bad address", err)
			}
			var id domain.IdentityPublic
			if err := id.DH.UnmarshalText([]byte(dh)); err != nil {
				return failure.Wrap(failure.ReasonInvalidArgument, "bad --dh key", err)
			}
			if err := id.Signing.UnmarshalText([]byte(signing)); err != nil {
				return failure.Wrap(failure.ReasonInvalidArgument, "bad --signing key", err)
			}
			pw, err := vaultPassword()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				if err := a.Sessions.Trust(peer, id); err != nil {
					return err
				}
				if err := a.Vault.Flush(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pinned %s (%s)\n", peer, crypto.IdentityFingerprint(id))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dh, "dh", "", "peer X25519 identity key (base64)")
	cmd.Flags().StringVar(&signing, "signing", "", "peer Ed25519 identity key (base64)")
	_ = cmd.MarkFlagRequired("dh")
	_ = cmd.MarkFlagRequired("signing")
	return cmd
}
