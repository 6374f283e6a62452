package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/weavetodo/internal/model"
	"github.com/idilsaglam/weavetodo/internal/session"
	"github.com/idilsaglam/weavetodo/internal/ui"
)

// changedMsg is posted whenever the session's items or record status move.
type changedMsg struct{}

// doneMsg reports the end of one publish.
type doneMsg struct {
	op  string
	err error
}

type op struct {
	name string
	fn   func(context.Context) error
}

// Notifier forwards session changes into a running program. Pass Notify
// to session.WithOnChange before the session is opened.
type Notifier struct {
	mu sync.Mutex
	p  *tea.Program
}

// Notify may be called from Update itself, where a blocking Send would
// never be received, so the message is sent from its own goroutine.
func (n *Notifier) Notify() {
	n.mu.Lock()
	p := n.p
	n.mu.Unlock()
	if p != nil {
		go p.Send(changedMsg{})
	}
}

func (n *Notifier) attach(p *tea.Program) {
	n.mu.Lock()
	n.p = p
	n.mu.Unlock()
}

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ model.Item }

func (i listItem) FilterValue() string { return i.Text }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render(">") + " "
	}
	fmt.Fprintln(w, prefix+ui.ItemText(it.Item))
}

type keyMap struct {
	Add, Edit, Toggle, Remove, Clear, Undo, Reload, Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		Clear:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete all")),
		Undo:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo remove")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
}

// Model is the interactive list. Every key changes the session's list at
// once; the publishes follow one at a time in the order the keys were
// pressed.
type Model struct {
	ctx  context.Context
	sess *session.Session
	keys keyMap

	list list.Model
	ti   textinput.Model
	spin spinner.Model

	// inline add / edit
	adding   bool
	editing  bool
	editID   string
	inputErr string

	confirmClear bool

	// single-level undo of the last remove
	undo      model.Item
	undoIndex int
	canUndo   bool

	queue    []op
	inflight bool
	quitting bool
	status   string
	failed   bool

	width, height int
}

func New(ctx context.Context, sess *session.Session) Model {
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Help
	l.Styles.PaginationStyle = ui.Current().Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	l.KeyMap.Quit.SetEnabled(false)
	extra := func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Edit, keys.Remove, keys.Clear, keys.Undo, keys.Reload}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.Current().Pending

	m := Model{ctx: ctx, sess: sess, keys: keys, list: l, ti: ti, spin: sp, width: 80, height: 24}
	m.refresh()
	m.resize()
	return m
}

// Run starts the program and blocks until the user quits and every queued
// publish has finished.
func Run(ctx context.Context, sess *session.Session, n *Notifier) error {
	p := tea.NewProgram(New(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx))
	if n != nil {
		n.attach(p)
		defer n.attach(nil)
	}
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.failed {
		return fmt.Errorf("last publish failed: %s", fm.status)
	}
	return nil
}

func (m Model) Init() tea.Cmd { return m.spin.Tick }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case changedMsg:
		m.refresh()
		return m, nil
	case doneMsg:
		m.inflight = false
		m.failed = msg.err != nil
		m.status = msg.op
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.op, msg.err)
		}
		m.refresh()
		if cmd := m.next(); cmd != nil {
			return m, cmd
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	if m.adding || m.editing {
		return m.updateInput(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.confirmClear {
		m.confirmClear = false
		if km.String() == "y" {
			return m, m.change("deleted all", func([]model.Item) ([]model.Item, error) {
				return model.ClearItems(), nil
			})
		}
		m.status = "delete all cancelled"
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(km, m.keys.Quit) && m.list.FilterState() == list.Unfiltered:
			if m.inflight {
				m.quitting = true
				m.status = "waiting for publishes to finish"
				return m, nil
			}
			return m, tea.Quit
		case key.Matches(km, m.keys.Add):
			m.adding = true
			m.inputErr = ""
			m.ti.SetValue("")
			m.ti.Placeholder = "New item..."
			m.resize()
			return m, m.ti.Focus()
		case key.Matches(km, m.keys.Edit):
			if it, ok := m.selected(); ok {
				m.editing = true
				m.editID = it.ID
				m.inputErr = ""
				m.ti.SetValue(it.Text)
				m.ti.CursorEnd()
				m.ti.Placeholder = "Edit item..."
				m.resize()
				return m, m.ti.Focus()
			}
			return m, nil
		case key.Matches(km, m.keys.Toggle):
			if it, ok := m.selected(); ok {
				return m, m.change("toggled", func(items []model.Item) ([]model.Item, error) {
					return model.ToggleItem(items, it.ID)
				})
			}
			return m, nil
		case key.Matches(km, m.keys.Remove):
			if it, ok := m.selected(); ok {
				idx := model.IndexOf(m.sess.Items(), it.ID)
				cmd := m.change("removed", func(items []model.Item) ([]model.Item, error) {
					return model.RemoveItem(items, it.ID)
				})
				if !m.failed {
					m.undo, m.undoIndex, m.canUndo = it, idx, true
				}
				return m, cmd
			}
			return m, nil
		case key.Matches(km, m.keys.Clear):
			m.confirmClear = true
			return m, nil
		case key.Matches(km, m.keys.Undo):
			if m.canUndo {
				it, idx := m.undo, m.undoIndex
				m.canUndo = false
				return m, m.change("restored", func(items []model.Item) ([]model.Item, error) {
					return model.InsertItem(items, idx, it)
				})
			}
			return m, nil
		case key.Matches(km, m.keys.Reload):
			return m, m.enqueue("reloaded", func(ctx context.Context) error { return m.sess.Open(ctx) })
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			text := strings.TrimSpace(m.ti.Value())
			if text == "" {
				m.inputErr = "Text cannot be empty"
				return m, nil
			}
			var cmd tea.Cmd
			if m.adding {
				cmd = m.change("added", func(items []model.Item) ([]model.Item, error) {
					out, _, err := model.AddItem(items, text)
					return out, err
				})
			} else {
				id := m.editID
				cmd = m.change("edited", func(items []model.Item) ([]model.Item, error) {
					return model.EditItem(items, id, text)
				})
			}
			m.closeInput()
			return m, cmd
		case "esc":
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.adding, m.editing = false, false
	m.editID, m.inputErr = "", ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

// change applies fn to the local list and queues its publish.
func (m *Model) change(name string, fn func([]model.Item) ([]model.Item, error)) tea.Cmd {
	publish, err := m.sess.Stage(fn)
	if err != nil {
		m.failed = true
		m.status = fmt.Sprintf("%s: %v", name, err)
		return nil
	}
	m.failed = false
	m.refresh()
	return m.enqueue(name, publish)
}

func (m *Model) enqueue(name string, fn func(context.Context) error) tea.Cmd {
	m.queue = append(m.queue, op{name: name, fn: fn})
	if m.inflight {
		return nil
	}
	return m.next()
}

func (m *Model) next() tea.Cmd {
	if len(m.queue) == 0 {
		return nil
	}
	o := m.queue[0]
	m.queue = m.queue[1:]
	m.inflight = true
	ctx := m.ctx
	return func() tea.Msg { return doneMsg{op: o.name, err: o.fn(ctx)} }
}

func (m Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.Item, ok
}

func (m *Model) refresh() {
	items := m.sess.Items()
	li := make([]list.Item, 0, len(items))
	for _, it := range items {
		li = append(li, listItem{it})
	}
	idx := m.list.Index()
	m.list.SetItems(li)
	if idx >= len(li) {
		idx = len(li) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = ui.Header(items)
}

func (m *Model) resize() {
	// border, padding and the footer lines
	h := m.height - 6
	if m.adding || m.editing {
		h -= 4
	}
	m.list.SetSize(max(m.width-4, 10), max(h, 3))
}

func (m Model) View() string {
	content := m.list.View()
	if m.adding || m.editing {
		title := "Add new item"
		if m.editing {
			title = "Edit item"
		}
		if m.inputErr != "" {
			title += "  " + ui.Current().Error.Render(m.inputErr)
		}
		content += "\n" + ui.PanelStyle().Render(title+"\n"+m.ti.View())
	}
	return ui.PanelStyle().Render(content + "\n" + m.footer())
}

func (m Model) footer() string {
	t := ui.Current()
	p := m.sess.Pending()
	line := t.Muted.Render(ui.ShortID(m.sess.Address())) + "  "
	if !p.Confirmed() {
		line += m.spin.View() + " "
	}
	line += ui.RecordStatus(p.ID, p.State, p.Confirmations, p.Threshold)

	var second string
	switch {
	case m.confirmClear:
		second = t.Error.Render("Delete every item? (y/N)")
	case m.inflight:
		second = t.Pending.Render(fmt.Sprintf("publishing… %d queued", len(m.queue)))
	case m.failed:
		second = t.Error.Render(t.SymFail + " " + m.status)
	case m.status != "":
		second = t.Success.Render(t.SymOK + " " + m.status)
	}
	line += "\n" + second
	if p.Confirmed() {
		line += "\n" + ui.ExplorerLink(p.ID)
	}
	return line
}
