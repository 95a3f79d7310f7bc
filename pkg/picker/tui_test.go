package picker

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"osmandlink/pkg/geocode"
)

func press(m model, k tea.KeyMsg) (model, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(model), cmd
}

func TestModel_EnterPicksSelected(t *testing.T) {
	m := newModel(cands("a", "b", "c"))

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, m.done)
	assert.Equal(t, 1, m.chosen)
	assert.NotNil(t, cmd)
	assert.Equal(t, "", m.View())
}

func TestModel_DismissKeys(t *testing.T) {
	keys := map[string]tea.KeyMsg{
		"esc":    {Type: tea.KeyEsc},
		"q":      {Type: tea.KeyRunes, Runes: []rune{'q'}},
		"ctrl+c": {Type: tea.KeyCtrlC},
	}
	for name, k := range keys {
		t.Run(name, func(t *testing.T) {
			m := newModel(cands("a", "b"))
			m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
			m, cmd := press(m, k)

			assert.True(t, m.done)
			assert.Equal(t, -1, m.chosen)
			assert.NotNil(t, cmd)
		})
	}
}

func TestModel_ViewListsCandidates(t *testing.T) {
	m := newModel(cands("Berlin, Germany", "Berlin, NH"))
	v := m.View()
	assert.Contains(t, v, "Berlin, Germany")
	assert.Contains(t, v, "Choose a location")
}

func TestCandidateItem(t *testing.T) {
	it := candidateItem{c: geocode.Candidate{Lat: "48.1", Lon: "11.5"}}
	assert.Equal(t, "(unnamed place)", it.Title())
	assert.Equal(t, "48.1, 11.5", it.Description())
}

func TestTUI_EmptyList(t *testing.T) {
	_, ok, err := (&TUI{}).Choose(context.Background(), nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}
