package ui

import (
	"fmt"
	"strings"

	"github.com/idilsaglam/weavetodo/internal/arweave"
	"github.com/idilsaglam/weavetodo/internal/model"
)

// maxTextWidth truncates long item texts in list output.
const maxTextWidth = 80

// ExplorerBase is the block explorer page prefix for a record id.
const ExplorerBase = "https://viewblock.io/arweave/tx/"

// Panel frames lines using the current theme's border.
func Panel(lines []string) string {
	return PanelStyle().Render(strings.Join(lines, "\n"))
}

// ProgressBar renders "[███░░] done/total".
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 0 {
		width = 28
	}
	filled := int(float64(done) / float64(total) * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf("] %d/%d", done, total)
}

// Header is the title line with live counts.
func Header(items []model.Item) string {
	done, pending := model.Stats(items)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		current.Title.Render("Todos"),
		current.Success.Render(current.SymOK), done,
		current.Pending.Render(current.SymDot), pending,
		current.Accent.Render("Total"), len(items),
	)
}

// ItemLines numbers items from 1 the way `done`/`rm` address them.
func ItemLines(items []model.Item) []string {
	if len(items) == 0 {
		return []string{current.Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		out = append(out, fmt.Sprintf("%s %s", current.Muted.Render(fmt.Sprintf("%2d.", i+1)), ItemText(it)))
	}
	return out
}

// ItemText is the checkbox plus text of one item.
func ItemText(it model.Item) string {
	text := it.Text
	if len([]rune(text)) > maxTextWidth {
		text = string([]rune(text)[:maxTextWidth-3]) + "..."
	}
	if it.Complete {
		return current.Success.Render(current.BoxChecked) + " " + current.Done.Render(text)
	}
	return current.Muted.Render(current.BoxUnchecked) + " " + text
}

// GroupLines lists pending items first, then completed ones. Numbers stay
// the list positions.
func GroupLines(items []model.Item) []string {
	var pend, done []string
	for i, it := range items {
		line := fmt.Sprintf("%s %s", current.Muted.Render(fmt.Sprintf("%2d.", i+1)), ItemText(it))
		if it.Complete {
			done = append(done, line)
		} else {
			pend = append(pend, line)
		}
	}
	none := current.Muted.Render("(none)")
	lines := []string{current.Accent.Render("Pending")}
	if len(pend) == 0 {
		pend = []string{none}
	}
	lines = append(lines, pend...)
	lines = append(lines, "", current.Accent.Render("Done"))
	if len(done) == 0 {
		done = []string{none}
	}
	return append(lines, done...)
}

// ShortID abbreviates a 43 character record id.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}

// RecordStatus describes a record's way to confirmation.
func RecordStatus(id string, state arweave.TxState, confirmations, threshold int) string {
	if id == "" {
		return current.Pending.Render(state.String())
	}
	style := current.Pending
	if state == arweave.StateConfirmed {
		style = current.Success
	}
	return fmt.Sprintf("%s %s  %s",
		current.Accent.Render(ShortID(id)),
		style.Render(state.String()),
		current.Muted.Render(ProgressBar(min(confirmations, threshold), threshold, 10)),
	)
}

// ExplorerLink points at a confirmed record on the public block explorer.
func ExplorerLink(id string) string {
	return current.Muted.Render("View on explorer: " + ExplorerBase + id)
}
