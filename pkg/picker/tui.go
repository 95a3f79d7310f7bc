package picker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"osmandlink/pkg/geocode"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TUI is a terminal Chooser built on bubbletea.
type TUI struct {
	Input  io.Reader // defaults to stdin
	Output io.Writer // defaults to stdout
}

// Choose runs the list until the user picks (enter) or dismisses (esc, q,
// ctrl+c). Context cancellation also counts as a dismissal.
func (t *TUI) Choose(ctx context.Context, cands []geocode.Candidate) (geocode.Candidate, bool, error) {
	if len(cands) == 0 {
		return geocode.Candidate{}, false, nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.Input != nil {
		opts = append(opts, tea.WithInput(t.Input))
	}
	if t.Output != nil {
		opts = append(opts, tea.WithOutput(t.Output))
	}

	final, err := tea.NewProgram(newModel(cands), opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return geocode.Candidate{}, false, nil
		}
		return geocode.Candidate{}, false, fmt.Errorf("picker: %w", err)
	}

	m, ok := final.(model)
	if !ok || m.chosen < 0 {
		return geocode.Candidate{}, false, nil
	}
	return cands[m.chosen], true, nil
}

// candidateItem adapts geocode.Candidate to list.Item.
type candidateItem struct {
	idx int
	c   geocode.Candidate
}

func (i candidateItem) Title() string { return i.c.Label("(unnamed place)") }
func (i candidateItem) Description() string {
	return fmt.Sprintf("%s, %s", i.c.Lat, i.c.Lon)
}
func (i candidateItem) FilterValue() string { return i.c.DisplayName }

type model struct {
	list   list.Model
	chosen int
	done   bool
}

func newModel(cands []geocode.Candidate) model {
	items := make([]list.Item, 0, len(cands))
	for i, c := range cands {
		items = append(items, candidateItem{idx: i, c: c})
	}

	l := list.New(items, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Choose a location"
	l.Styles.Title = titleStyle
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return model{list: l, chosen: -1}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(candidateItem); ok {
				m.chosen = item.idx
			}
			m.done = true
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			m.chosen = -1
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.done {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		helpStyle.Render(" ↑/↓: move • enter: choose • esc: cancel"),
	)
}
