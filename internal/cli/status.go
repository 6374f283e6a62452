package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/logger"
	"github.com/idilsaglam/weavetodo/internal/tracker"
	"github.com/idilsaglam/weavetodo/internal/ui"
)

func (a *app) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Show confirmations of a record (default: the last one published)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usagef("usage: weavetodo status [id] [--wait]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, err := cmd.Flags().GetBool(FlagWait)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagWait, err)
			}
			ctx := cmd.Context()
			gw, err := a.gateway()
			if err != nil {
				return err
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			} else if id, err = a.lastRecord(ctx, gw); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !wait {
				st, err := gw.Status(ctx, id)
				if err != nil {
					return err
				}
				printStatus(out, id, st, a.cfg.Tracker.Confirmations)
				return nil
			}
			return a.waitConfirmed(ctx, out, gw, id)
		},
	}
	cmd.Flags().Bool(FlagWait, false, "(optional) poll until the record is confirmed")
	return cmd
}

// lastRecord is the newest id for the wallet: the cached pending id when
// there is one, otherwise whatever Load picks.
func (a *app) lastRecord(ctx context.Context, gw *arweave.Client) (string, error) {
	w, err := a.wallet()
	if err != nil {
		return "", err
	}
	if c := a.recordCache(); c != nil {
		id, ok, err := c.Pending(w.Address())
		if err != nil {
			logger.Logger.Warn("read pending record", zap.Error(err))
		} else if ok {
			return id, nil
		}
	}
	rec, err := a.synchronizer(gw).Load(ctx, w)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (a *app) waitConfirmed(ctx context.Context, out io.Writer, src tracker.StatusSource, id string) error {
	threshold := a.cfg.Tracker.Confirmations
	opts := append(a.trackerOptions(), tracker.WithOnUpdate(func(u tracker.Update) {
		if u.Err != nil {
			ui.Fail(out, "status: "+u.Err.Error())
			return
		}
		printStatus(out, u.ID, u.Status, threshold)
	}))
	tr := tracker.New(src, opts...)
	tr.Track(id)
	defer tr.Stop()
	if err := tr.Wait(ctx); err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	ui.OK(out, "confirmed")
	return nil
}

func printStatus(w io.Writer, id string, st arweave.Status, threshold int) {
	if !st.Found {
		fmt.Fprintln(w, ui.Current().Pending.Render(ui.ShortID(id)+" unknown to the gateway"))
		return
	}
	state := st.State(threshold)
	if st.BlockHeight == 0 {
		state = arweave.StateSubmitted
	}
	fmt.Fprintln(w, ui.RecordStatus(id, state, st.Confirmations, threshold))
	if state == arweave.StateConfirmed {
		fmt.Fprintln(w, ui.ExplorerLink(id))
	}
}
