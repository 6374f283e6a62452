package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/weavetodo/internal/devnet"
	"github.com/idilsaglam/weavetodo/internal/ui"
)

const defaultDevnetAddr = "127.0.0.1:1984"

func (a *app) devnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devnet",
		Short: "Run an in-memory gateway for local testing",
		Long: `devnet serves the gateway API from memory. Blocks are mined with
POST /mine or on the --mine-every interval; point the other commands at it
with --gateway http://127.0.0.1:1984.`,
		Args: exactArgs(0, "devnet [--addr host:port] [--mine-every 10s]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := cmd.Flags().GetString(FlagAddr)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagAddr, err)
			}
			every, err := cmd.Flags().GetDuration(FlagMineEvery)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagMineEvery, err)
			}
			if every < 0 {
				return usagef("devnet: --%s must not be negative", FlagMineEvery)
			}

			ui.OK(cmd.OutOrStdout(), "devnet gateway on http://"+addr)
			return devnet.New(devnet.WithMineEvery(every)).Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().String(FlagAddr, defaultDevnetAddr, "(optional) listen address")
	cmd.Flags().Duration(FlagMineEvery, 0, "(optional) mine a block on this interval")
	return cmd
}
