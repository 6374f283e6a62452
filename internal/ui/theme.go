package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette, symbols and box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Name string

	Title, Muted, Accent, Success, Pending, Error lipgloss.Style
	Selected, Done, Help                          lipgloss.Style

	Border      lipgloss.Border
	BorderColor lipgloss.TerminalColor

	BoxChecked, BoxUnchecked string
	SymOK, SymFail, SymDot   string
}

var themes = map[string]Theme{
	"classic": {
		Name:    "classic",
		Title:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Faint(true),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),

		Selected: lipgloss.NewStyle().Bold(true).Reverse(true),
		Done:     lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Help:     lipgloss.NewStyle().Faint(true),

		Border:      lipgloss.RoundedBorder(),
		BorderColor: lipgloss.Color("8"),

		BoxChecked: "☑", BoxUnchecked: "☐",
		SymOK: "✔", SymFail: "✖", SymDot: "•",
	},
	"neon": {
		Name:    "neon",
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),

		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("13")),
		Done:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),

		Border:      lipgloss.DoubleBorder(),
		BorderColor: lipgloss.Color("13"),

		BoxChecked: "◼", BoxUnchecked: "◻",
		SymOK: "✔", SymFail: "✖", SymDot: "•",
	},
	"mono": {
		Name:    "mono",
		Title:   lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Accent:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Pending: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),

		Selected: lipgloss.NewStyle(),
		Done:     lipgloss.NewStyle(),
		Help:     lipgloss.NewStyle(),

		Border:      lipgloss.ASCIIBorder(),
		BorderColor: lipgloss.NoColor{},

		BoxChecked: "[x]", BoxUnchecked: "[ ]",
		SymOK: "ok", SymFail: "error:", SymDot: "-",
	},
}

var current = themes["classic"]

// SetTheme switches the process-wide theme.
func SetTheme(name string) error {
	t, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("unknown theme %q (have %s)", name, strings.Join(ThemeNames(), ", "))
	}
	current = t
	return nil
}

func Current() Theme { return current }

func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
