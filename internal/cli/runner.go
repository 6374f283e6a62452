package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/weavetodo/internal/ui"
	"github.com/idilsaglam/weavetodo/internal/wallet"
)

const (
	FlagConfig    = "config"
	FlagWallet    = "wallet"
	FlagGateway   = "gateway"
	FlagAppTag    = "app-tag"
	FlagTheme     = "theme"
	FlagGroup     = "group"
	FlagWait      = "wait"
	FlagOut       = "out"
	FlagAddr      = "addr"
	FlagMineEvery = "mine-every"
)

// usageError marks mistakes in the command line itself (exit code 2).
type usageError struct {
	msg  string
	hint string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Run executes one command line and returns an exit code (0 ok, 1 error,
// 2 usage).
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.teardown()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	ui.Fail(stderr, err.Error())
	var ue *usageError
	if errors.As(err, &ue) {
		if ue.hint != "" {
			ui.Hint(stderr, ue.hint)
		}
		return 2
	}
	if errors.Is(err, wallet.ErrNoWallet) {
		ui.Hint(stderr, "create one with `weavetodo wallet new` or pass --wallet")
	}
	return 1
}

// newRootCmd builds the command tree. With no subcommand the interactive
// list opens.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "weavetodo",
		Short: "A todo list stored on Arweave",
		Long: `weavetodo keeps one todo list per wallet. Every change publishes the
whole list as a new signed record; the newest record is the list.`,
		Example: `  weavetodo wallet new
  weavetodo add "Buy milk"
  weavetodo ls
  weavetodo done 2
  weavetodo status --wait`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error(), hint: "run `weavetodo --help` for usage"}
	})

	pf := root.PersistentFlags()
	pf.String(FlagConfig, "", "(optional) config file (default ~/.weavetodo/config.yaml)")
	pf.String(FlagWallet, "", "(optional) JWK wallet file (default ~/.weavetodo/wallet.json, env WEAVETODO_WALLET)")
	pf.String(FlagGateway, "", "(optional) gateway URL")
	pf.String(FlagAppTag, "", "(optional) tag name binding records to the wallet address")
	pf.String(FlagTheme, "", "(optional) output theme: classic, neon or mono")

	root.AddCommand(
		a.listCmd(),
		a.addCmd(),
		a.doneCmd(),
		a.editCmd(),
		a.removeCmd(),
		a.clearCmd(),
		a.statusCmd(),
		a.whoamiCmd(),
		a.walletCmd(),
		a.devnetCmd(),
	)
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{
			msg:  "unknown subcommand: " + args[0],
			hint: "run `weavetodo --help` for usage",
		}
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: weavetodo %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: weavetodo %s", usage)
		}
		return nil
	}
}

// parseIndex turns a 1-based list position into a slice index.
func parseIndex(cmd, arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, usagef("%s: not a number: %s", cmd, arg)
	}
	if i < 1 || i > n {
		return 0, &usageError{
			msg:  fmt.Sprintf("index out of range: have %d, got %d", n, i),
			hint: "run `weavetodo ls` to see valid indexes",
		}
	}
	return i - 1, nil
}
