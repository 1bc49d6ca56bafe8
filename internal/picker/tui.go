package picker

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Prompt describes one selection step. Options may span multiple lines; every
// option is rendered with the same line count so the scroll window stays
// aligned.
type Prompt struct {
	Title        string
	Options      []string
	DefaultIndex int
}

// ChooseFunc presents a prompt and returns the selected index. ok is false
// when the user cancelled. Flows take a ChooseFunc so tests can script the
// interaction.
type ChooseFunc func(Prompt) (index int, ok bool, err error)

// ErrNotATerminal reports that interactive selection was requested without an
// attached terminal.
var ErrNotATerminal = errors.New("standard input is not a terminal")

// Choose runs the interactive terminal picker for a prompt.
func Choose(p Prompt) (int, bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return 0, false, ErrNotATerminal
	}
	flow, err := NewFlow(p.Options, p.DefaultIndex)
	if err != nil {
		return 0, false, err
	}
	model := newPickModel(p.Title, flow)
	program := tea.NewProgram(model, tea.WithAltScreen())
	out, err := program.Run()
	if err != nil {
		return 0, false, err
	}
	final, ok := out.(*pickModel)
	if !ok {
		return 0, false, fmt.Errorf("unexpected picker model %T", out)
	}
	idx, committed := final.flow.Result()
	return idx, committed, nil
}

type pickKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

func defaultPickKeyMap() pickKeyMap {
	return pickKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "cancel"),
		),
	}
}

func (k pickKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Confirm, k.Quit}
}

func (k pickKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Confirm, k.Quit}}
}

var (
	textColor      = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#E6EDF3"}
	mutedTextColor = lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#8B949E"}
	borderColor    = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#30363D"}
	accentColor    = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"}
	accentBgColor  = lipgloss.AdaptiveColor{Light: "#DDF4FF", Dark: "#1F2937"}

	pickTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("31")).
			Padding(0, 1)

	pickOptionStyle = lipgloss.NewStyle().
			Foreground(textColor)

	pickSelectedStyle = lipgloss.NewStyle().
				Foreground(textColor).
				Background(accentBgColor).
				Bold(true)

	pickIndicatorStyle = lipgloss.NewStyle().
				Foreground(borderColor)

	pickIndicatorSelectedStyle = lipgloss.NewStyle().
					Foreground(accentColor).
					Bold(true)

	pickHintStyle = lipgloss.NewStyle().Foreground(mutedTextColor)

	pickPageStyle = lipgloss.NewStyle().Padding(1, 2)
)

type pickModel struct {
	title string
	flow  *Flow

	keys pickKeyMap
	help help.Model

	width  int
	height int
}

func newPickModel(title string, flow *Flow) *pickModel {
	m := &pickModel{
		title: title,
		flow:  flow,
		keys:  defaultPickKeyMap(),
		help:  help.New(),
	}
	m.help.ShowAll = false
	return m
}

func (m *pickModel) Init() tea.Cmd {
	return nil
}

func (m *pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.flow.Move(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.flow.Move(1)
			return m, nil
		case key.Matches(msg, m.keys.Confirm):
			m.flow.Confirm()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit):
			m.flow.Cancel()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *pickModel) View() string {
	options := m.flow.Options()
	linesPer := optionLineCount(options)

	var rows []string
	first, last := m.visibleRange(linesPer)
	if first > 0 {
		rows = append(rows, pickHintStyle.Render(fmt.Sprintf("  … %d above", first)))
	}
	for i := first; i < last; i++ {
		rows = append(rows, m.renderOption(i, options[i]))
	}
	if last < len(options) {
		rows = append(rows, pickHintStyle.Render(fmt.Sprintf("  … %d below", len(options)-last)))
	}

	body := strings.Join([]string{
		pickTitleStyle.Render(m.title),
		"",
		strings.Join(rows, "\n"),
		"",
		m.help.View(m.keys),
	}, "\n")
	return pickPageStyle.Render(body)
}

// visibleRange returns the half open window of option indexes that fits the
// terminal height, keeping the focused option inside it.
func (m *pickModel) visibleRange(linesPerOption int) (int, int) {
	total := len(m.flow.Options())
	if m.height == 0 {
		return 0, total
	}
	chrome := 7 // padding, title, blanks, help, overflow hints
	visible := (m.height - chrome) / linesPerOption
	if visible < 1 {
		visible = 1
	}
	if visible >= total {
		return 0, total
	}
	first := m.flow.Focus() - visible/2
	if first < 0 {
		first = 0
	}
	if first+visible > total {
		first = total - visible
	}
	return first, first + visible
}

func (m *pickModel) renderOption(index int, label string) string {
	selected := index == m.flow.Focus()
	indicatorStyle := pickIndicatorStyle
	lineStyle := pickOptionStyle
	if selected {
		indicatorStyle = pickIndicatorSelectedStyle
		lineStyle = pickSelectedStyle
	}

	width := m.width - 6
	if width < 20 {
		width = 20
	}
	lines := strings.Split(label, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		indicator := "  "
		if selected && i == 0 {
			indicator = "▸ "
		}
		out = append(out, indicatorStyle.Render(indicator)+lineStyle.Render(ansi.Truncate(line, width, "…")))
	}
	return strings.Join(out, "\n")
}

func optionLineCount(options []string) int {
	max := 1
	for _, o := range options {
		if n := strings.Count(o, "\n") + 1; n > max {
			max = n
		}
	}
	return max
}
