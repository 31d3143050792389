package views

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linzh0131/find/internal/session"
)

func newTestModel() QueryModel {
	return NewQueryModel(QueryDeps{State: session.New()})
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestTypingQGoesIntoQueryInput(t *testing.T) {
	m := newTestModel()

	next, cmd := m.Update(keyRune('q'))

	assert.False(t, isQuit(cmd), "a query may start with the letter q")
	got := next.(QueryModel)
	assert.Equal(t, "q", got.input.Value())

	next, cmd = got.Update(keyRune('u'))
	assert.False(t, isQuit(cmd))
	assert.Equal(t, "qu", next.(QueryModel).input.Value())
}

func TestQQuitsFromResultsFocus(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	got := next.(QueryModel)
	require.Equal(t, focusResults, got.focus)

	_, cmd := got.Update(keyRune('q'))
	assert.True(t, isQuit(cmd))
}

func TestEscQuitsOnlyWithEmptyInput(t *testing.T) {
	m := newTestModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd), "esc on an empty input quits")

	next, _ := m.Update(keyRune('q'))
	_, cmd = next.(QueryModel).Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, isQuit(cmd), "esc must not discard typed input")
}
