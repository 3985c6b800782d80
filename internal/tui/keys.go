package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/livesearch/internal/search"
)

// keyCode maps a terminal key to the key code the controller filters on.
// Printable characters never map onto a navigation code: '%' and '&' share
// their numbers with the arrow keys.
func keyCode(msg tea.KeyMsg) search.KeyCode {
	if msg.Alt && msg.Type != tea.KeyRunes {
		return search.KeyAlt
	}

	switch msg.Type {
	case tea.KeyEnter:
		return search.KeyEnter
	case tea.KeyUp, tea.KeyShiftUp, tea.KeyCtrlUp, tea.KeyCtrlShiftUp:
		return search.KeyArrowUp
	case tea.KeyDown, tea.KeyShiftDown, tea.KeyCtrlDown, tea.KeyCtrlShiftDown:
		return search.KeyArrowDown
	case tea.KeyLeft, tea.KeyShiftLeft, tea.KeyCtrlLeft, tea.KeyCtrlShiftLeft:
		return search.KeyArrowLeft
	case tea.KeyRight, tea.KeyShiftRight, tea.KeyCtrlRight, tea.KeyCtrlShiftRight:
		return search.KeyArrowRight
	case tea.KeyBackspace:
		return search.KeyBackspace
	case tea.KeyDelete:
		return search.KeyDelete
	case tea.KeySpace:
		return search.KeySpace
	case tea.KeyTab:
		return search.KeyTab
	case tea.KeyEsc:
		return search.KeyEscape
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			return runeCode(msg.Runes[0])
		}
	}
	return search.KeyOther
}

// runeCode returns the browser-style code for letters and digits. Letters use
// their upper-case code.
func runeCode(r rune) search.KeyCode {
	switch {
	case r >= 'a' && r <= 'z':
		return search.KeyCode(r - 'a' + 'A')
	case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return search.KeyCode(r)
	}
	return search.KeyOther
}

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.ctrl.Close()
		m.renderer.close()
		return m, tea.Quit

	case "esc":
		m.input.SetValue("")
		m.cursor = 0
		m.ctrl.OnKeyEvent(search.KeyEvent{Code: search.KeyEscape, Value: ""})
		syncCmd := m.sync()
		return m, syncCmd

	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.cursor < len(m.view.items)-1 {
			m.cursor++
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	value := m.input.Value()
	if value != before {
		m.cursor = 0
	}

	m.ctrl.OnKeyEvent(search.KeyEvent{Code: keyCode(msg), Value: value})
	syncCmd := m.sync()
	return m, tea.Batch(cmd, syncCmd)
}
