package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/weavetodo/internal/model"
	"github.com/idilsaglam/weavetodo/internal/session"
	"github.com/idilsaglam/weavetodo/internal/tui"
	"github.com/idilsaglam/weavetodo/internal/ui"
)

func (a *app) runInteractive(ctx context.Context) error {
	n := &tui.Notifier{}
	sess, err := a.openSession(ctx, session.WithOnChange(n.Notify))
	if err != nil {
		return err
	}
	return tui.Run(ctx, sess, n)
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items",
		Args:  exactArgs(0, "ls [--group]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := cmd.Flags().GetBool(FlagGroup)
			if err != nil {
				return fmt.Errorf("%s flag: %w", FlagGroup, err)
			}
			sess, err := a.openSession(cmd.Context(), session.WithoutTracking())
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), sess.Items(), sess.Pending().ID, group)
			return nil
		},
	}
	cmd.Flags().Bool(FlagGroup, false, "(optional) group output by pending/done")
	return cmd
}

func printList(w io.Writer, items []model.Item, recordID string, group bool) {
	t := ui.Current()
	done, pending := model.Stats(items)

	lines := []string{
		ui.Header(items),
		t.Muted.Render(ui.ProgressBar(done, done+pending, 28)),
		"",
	}
	if group {
		lines = append(lines, ui.GroupLines(items)...)
	} else {
		lines = append(lines, ui.ItemLines(items)...)
	}
	lines = append(lines, "", t.Muted.Render("record "+recordID))
	lines = append(lines, t.Muted.Render("Tip: add with `weavetodo add \"Buy milk\"`"))
	fmt.Fprintln(w, ui.Panel(lines))
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a new item (text can be multiple words)",
		Args:  minArgs(1, "add <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return usagef("add: empty text")
			}
			return a.mutate(cmd, func(ctx context.Context, s *session.Session) (string, error) {
				_, err := s.Add(ctx, text)
				return "added", err
			})
		},
	}
}

func (a *app) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle done for the item at a 1-based index",
		Args:  exactArgs(1, "done <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *session.Session) (string, error) {
				items := s.Items()
				i, err := parseIndex("done", args[0], len(items))
				if err != nil {
					return "", err
				}
				return "toggled", s.Toggle(ctx, items[i].ID)
			})
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <text...>",
		Short: "Replace the text of the item at a 1-based index",
		Args:  minArgs(2, "edit <index> <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return usagef("edit: empty text")
			}
			return a.mutate(cmd, func(ctx context.Context, s *session.Session) (string, error) {
				items := s.Items()
				i, err := parseIndex("edit", args[0], len(items))
				if err != nil {
					return "", err
				}
				return "edited", s.Edit(ctx, items[i].ID, text)
			})
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the item at a 1-based index",
		Args:  exactArgs(1, "rm <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *session.Session) (string, error) {
				items := s.Items()
				i, err := parseIndex("rm", args[0], len(items))
				if err != nil {
					return "", err
				}
				return "removed", s.Remove(ctx, items[i].ID)
			})
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every item",
		Args:  exactArgs(0, "clear"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, s *session.Session) (string, error) {
				return "deleted all", s.DeleteAll(ctx)
			})
		},
	}
}

// mutate opens the list, applies fn and reports the record it published.
func (a *app) mutate(cmd *cobra.Command, fn func(context.Context, *session.Session) (string, error)) error {
	sess, err := a.openSession(cmd.Context(), session.WithoutTracking())
	if err != nil {
		return err
	}
	msg, err := fn(cmd.Context(), sess)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ui.OK(out, msg)
	fmt.Fprintln(out, ui.Current().Muted.Render("record "+sess.Pending().ID))
	fmt.Fprintln(out, ui.Current().Muted.Render("run `weavetodo status --wait` to follow confirmations"))
	return nil
}
