package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cipherkeep/internal/app"
	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

// handshake is what an initiator hands to the responder out of band, one
// JSON object per line.
type handshake struct {
	From     domain.Address        `json:"from"`
	To       domain.Address        `json:"to"`
	Identity domain.IdentityPublic `json:"identity"`
	Message  domain.PreKeyMessage  `json:"message"`
}

func startChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-chat <username>",
		Short: "Set up sessions with every device of a peer",
		Long: "Fetch a prekey bundle for every active device of <username>, verify it\n" +
			"and derive a session. One handshake line per device is written to stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := askPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				ctx := cmd.Context()
				p, err := a.Accounts.Authorize(ctx, pw)
				if err != nil {
					return err
				}
				id, _, err := a.Vault.IdentityKeyPair()
				if err != nil {
					return err
				}

				sessions, chatErr := a.Sessions.StartChat(ctx, domain.Username(args[0]))
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, s := range sessions {
					msg, err := a.Sessions.PreKeyMessage(s)
					if err != nil {
						return err
					}
					if err := enc.Encode(handshake{From: p.Address(), To: s.Peer, Identity: id.Public(), Message: msg}); err != nil {
						return err
					}
					note := ""
					if s.Degraded() {
						note = " (no one-time prekey left)"
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "%s safety number %s%s\n",
						s.Peer, crypto.SafetyNumber(id.Public(), s.PeerIdentity), note)
				}
				if failure.Only(chatErr, failure.ReasonPreKeysExhausted) {
					fmt.Fprintln(cmd.ErrOrStderr(), failure.ReasonPreKeysExhausted.UserMessage())
					return nil
				}
				if failure.Has(chatErr, failure.ReasonUntrustedIdentity) {
					fmt.Fprintln(cmd.ErrOrStderr(), "a device changed its identity; verify it and run `cipherkeep trust`")
				}
				return chatErr
			})
		},
	}
}

func acceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept [file]",
		Short: "Accept a session started by a peer",
		Long:  "Read handshake lines produced by start-chat from file (or stdin) and derive the responder sessions.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			pw, err := vaultPassword()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), pw, func(a *app.App) error {
				p, ok, err := a.Vault.Profile()
				if err != nil {
					return err
				}
				if !ok {
					return failure.FailedPrecondition("no account on this device; run signup or login")
				}
				id, _, err := a.Vault.IdentityKeyPair()
				if err != nil {
					return err
				}

				var errs []error
				sc := bufio.NewScanner(in)
				sc.Buffer(make([]byte, 0, 4096), 1<<20)
				for sc.Scan() {
					if len(sc.Bytes()) == 0 {
						continue
					}
					var h handshake
					if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
						errs = append(errs, failure.Wrap(failure.ReasonInvalidArgument, "bad handshake line", err))
						continue
					}
					if h.To != p.Address() {
						continue
					}
					s, err := a.Sessions.Accept(cmd.Context(), h.From, h.Identity, h.Message)
					if err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", h.From, err))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s safety number %s\n",
						s.Peer, crypto.SafetyNumber(id.Public(), s.PeerIdentity))
				}
				if err := sc.Err(); err != nil {
					errs = append(errs, err)
				}
				return errors.Join(errs...)
			})
		},
	}
}
