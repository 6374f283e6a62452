package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/weavetodo/internal/ui"
	"github.com/idilsaglam/weavetodo/internal/wallet"
)

const (
	FlagBits = "bits"

	// defaultKeyBits is the modulus size Arweave wallets use.
	defaultKeyBits = 4096
)

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the wallet address and where records go",
		Args:  exactArgs(0, "whoami"),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.wallet()
			if err != nil {
				return err
			}
			path, err := wallet.Resolve(a.cfg.Wallet.Path)
			if err != nil {
				return err
			}
			t := ui.Current()
			fmt.Fprintln(cmd.OutOrStdout(), ui.Panel([]string{
				t.Title.Render("Address  ") + w.Address(),
				t.Muted.Render("Wallet   ") + path,
				t.Muted.Render("Gateway  ") + a.cfg.Gateway.URL,
				t.Muted.Render("App tag  ") + a.cfg.App.Tag,
			}))
			return nil
		},
	}
}

func (a *app) walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the signing wallet",
		Args:  exactArgs(0, "wallet new [--out <file>]"),
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new RSA wallet",
		Args:  exactArgs(0, "wallet new [--out <file>]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString(FlagOut)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagOut, err)
			}
			bits, err := cmd.Flags().GetInt(FlagBits)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagBits, err)
			}
			if bits < 1024 {
				return usagef("wallet new: --%s must be at least 1024", FlagBits)
			}
			if out == "" {
				out = a.cfg.Wallet.Path
			}

			w, err := wallet.Generate(bits)
			if err != nil {
				return err
			}
			path, err := wallet.Save(out, w)
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "wallet written to "+path)
			fmt.Fprintln(cmd.OutOrStdout(), "address "+w.Address())
			return nil
		},
	}
	newCmd.Flags().String(FlagOut, "", "(optional) output file (default: the configured wallet path)")
	newCmd.Flags().Int(FlagBits, defaultKeyBits, "(optional) RSA key size")

	cmd.AddCommand(newCmd)
	return cmd
}
