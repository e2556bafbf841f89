package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todomvc/internal/actor"
	"github.com/idilsaglam/todomvc/internal/logging"
	"github.com/idilsaglam/todomvc/internal/model"
	"github.com/idilsaglam/todomvc/internal/todos"
)

// Options tune the interactive session.
type Options struct {
	Logger *slog.Logger
	// AltScreen runs the program full-screen.
	AltScreen bool
	// Input/Output override the terminal, mainly for tests.
	Input  io.Reader
	Output io.Writer
}

// listItem adapts a todo to bubbles/list.Item
type listItem struct {
	todos.Todo
}

func (i listItem) TitleText() string {
	box := boxUnchecked
	if i.Completed {
		box = boxChecked
	}
	return fmt.Sprintf("%s %s", box, i.Item.Title)
}

// Implement list.Item interface
func (i listItem) Title() string       { return i.TitleText() }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.Item.Title }

type mode int

const (
	modeNormal mode = iota
	modeAdding
	modeEditing
)

// foldedMsg reports that an actor notification was applied to the machine.
type foldedMsg struct {
	event    todos.Event
	accepted bool
}

type modelTUI struct {
	machine *todos.Machine
	logger  *slog.Logger

	list    list.Model
	ti      textinput.Model // shared text input model (used for add & edit)
	mode    mode
	editID  string
	errText string // last validation error (shown in the input bar)
	changed bool

	width, height int
}

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
	boxStyled := mutedStyle.Render(boxUnchecked)
	textStyled := it.Item.Title
	if it.Completed {
		boxStyled = successStyle.Render(boxChecked)
		textStyled = doneStyle.Render(it.Item.Title)
	}

	line := fmt.Sprintf("%s %s", boxStyled, textStyled)
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	filterBind = key.NewBinding(key.WithKeys("f"), key.WithHelp("f/1/2/3", "filter"))
	allBind    = key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "toggle all"))
	clearBind  = key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear completed"))
)

func newModel(machine *todos.Machine, opt Options) modelTUI {
	logger := opt.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	l := list.New(nil, itemDelegate{}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("item", "items")
	l.KeyMap.Quit.SetEnabled(false)

	extra := func() []key.Binding {
		return []key.Binding{addBind, editBind, toggleBind, deleteBind, filterBind, allBind, clearBind}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	m := modelTUI{
		machine: machine,
		logger:  logger,
		list:    l,
		width:   80,
		height:  24,
	}
	// set up text input for inline add/edit
	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.Placeholder = "What needs to be done?"
	m.ti.CharLimit = 200

	m.refresh()
	return m
}

// Run starts the Bubble Tea program on machine and reports whether the list changed.
func Run(machine *todos.Machine, opt Options) (bool, error) {
	var progOpts []tea.ProgramOption
	if opt.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if opt.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opt.Input))
	}
	if opt.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opt.Output))
	}

	p := tea.NewProgram(newModel(machine, opt), progOpts...)
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}
	fm, ok := finalModel.(modelTUI)
	if !ok {
		return false, nil
	}
	return fm.changed, nil
}

// fold waits for the next actor notification and applies it to the machine
// directly, so nothing is lost if the program exits in between.
func fold(machine *todos.Machine) tea.Cmd {
	return func() tea.Msg {
		ev, accepted, err := machine.Fold(context.Background())
		if err != nil {
			return nil
		}
		return foldedMsg{event: ev, accepted: accepted}
	}
}

// Update and View implement Bubble Tea's Model on modelTUI
func (m modelTUI) Init() tea.Cmd { return fold(m.machine) }

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch x := msg.(type) {
	case foldedMsg:
		if x.accepted {
			m.changed = true
			m.logger.Debug("actor notification applied", "type", x.event.Type())
		}
		m.refresh()
		return m, fold(m.machine)
	case tea.WindowSizeMsg:
		m.width, m.height = x.Width, x.Height
		m.resize()
		return m, nil
	}

	switch m.mode {
	case modeAdding:
		return m.updateAdding(msg)
	case modeEditing:
		return m.updateEditing(msg)
	}

	if x, ok := msg.(tea.KeyMsg); ok {
		switch x.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			if it, ok := m.selected(); ok {
				it.Ref.Send(actor.Toggle{})
			}
			return m, nil
		case "d":
			if it, ok := m.selected(); ok {
				m.send(todos.ItemDelete{ID: it.ID})
			}
			return m, nil
		case "a":
			m.mode = modeAdding
			m.errText = ""
			// the pending input survives leaving add mode
			m.ti.SetValue(m.machine.Snapshot().Input)
			m.ti.CursorEnd()
			m.ti.Placeholder = "What needs to be done?"
			m.resize()
			cmd := m.ti.Focus()
			return m, cmd
		case "e":
			if it, ok := m.selected(); ok {
				m.mode = modeEditing
				m.editID = it.ID
				m.errText = ""
				m.ti.SetValue(it.Item.Title)
				m.ti.CursorEnd()
				m.ti.Placeholder = "Edit item title..."
				m.resize()
				cmd := m.ti.Focus()
				return m, cmd
			}
			return m, nil
		case "f":
			m.send(todos.SetFilter{Filter: m.machine.Snapshot().Filter.Next()})
			return m, nil
		case "1", "2", "3":
			m.send(todos.SetFilter{Filter: model.Filters[x.String()[0]-'1']})
			return m, nil
		case "A":
			s := m.machine.Snapshot()
			if active, completed := s.Counts(); active == 0 && completed > 0 {
				m.send(todos.MarkAllActive{})
			} else {
				m.send(todos.MarkAllCompleted{})
			}
			return m, nil
		case "C":
			m.send(todos.ClearCompleted{})
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modelTUI) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if x, ok := msg.(tea.KeyMsg); ok {
		switch x.String() {
		case "enter":
			if !m.send(todos.InputCommit{Value: m.ti.Value()}) {
				m.errText = "Title cannot be empty"
				return m, nil
			}
			m.ti.SetValue(m.machine.Snapshot().Input)
			m.leaveInput()
			return m, nil
		case "esc":
			// keep the draft in the machine for the next "a"
			m.leaveInput()
			return m, nil
		}
	}

	before := m.ti.Value()
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	if v := m.ti.Value(); v != before {
		m.errText = ""
		m.send(todos.InputChange{Value: v})
	}
	return m, cmd
}

func (m modelTUI) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if x, ok := msg.(tea.KeyMsg); ok {
		switch x.String() {
		case "enter":
			for _, t := range m.machine.Snapshot().Todos {
				if t.ID == m.editID {
					// a blank title makes the actor ask for deletion
					t.Ref.Send(actor.Rename{Title: m.ti.Value()})
					break
				}
			}
			m.ti.SetValue("")
			m.leaveInput()
			return m, nil
		case "esc":
			m.ti.SetValue("")
			m.leaveInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *modelTUI) leaveInput() {
	m.mode = modeNormal
	m.editID = ""
	m.errText = ""
	m.ti.Blur()
	m.resize()
}

// send dispatches ev and refreshes the list when it was accepted.
func (m *modelTUI) send(ev todos.Event) bool {
	if !m.machine.Send(ev) {
		return false
	}
	switch ev.(type) {
	case todos.InputChange, todos.SetFilter, todos.MarkAllActive, todos.MarkAllCompleted:
		// no persisted change yet; actors commit later
	default:
		m.changed = true
	}
	m.refresh()
	return true
}

func (m modelTUI) selected() (listItem, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it, ok
}

// refresh rebuilds list rows and title from the machine.
func (m *modelTUI) refresh() {
	s := m.machine.Snapshot()
	visible := s.Visible()
	items := make([]list.Item, 0, len(visible))
	for _, t := range visible {
		items = append(items, listItem{Todo: t})
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}

	active, completed := s.Counts()
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d  %s",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), completed,
		pendingStyle.Render("•"), active,
		accentStyle.Render("Total"), len(s.Todos),
		mutedStyle.Render("["+s.Filter.String()+"]"),
	)
}

func (m *modelTUI) resize() {
	listHeight := m.height - 5
	if m.mode != modeNormal {
		listHeight -= 4
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width-4, listHeight)
}

func (m modelTUI) View() string {
	content := m.list.View()

	if m.mode != modeNormal {
		bar := frameStyle
		title := "Add new item"
		if m.mode == modeEditing {
			title = "Edit item"
		}
		if m.errText != "" {
			title += " - " + errorStyle.Render(m.errText)
		}
		content += "\n" + bar.Render(title+"\n"+m.ti.View())
	}

	s := m.machine.Snapshot()
	active, _ := s.Counts()
	footer := fmt.Sprintf("%d %s left", active, plural(active, "item", "items"))
	filters := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		name := f.String()
		if f == s.Filter {
			name = accentStyle.Render(name)
		} else {
			name = mutedStyle.Render(name)
		}
		filters = append(filters, name)
	}
	content += "\n" + lipgloss.JoinHorizontal(lipgloss.Top,
		mutedStyle.Render(footer), "   ", strings.Join(filters, " "))

	return frameStyle.Render(content)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
