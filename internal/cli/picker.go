package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/goenrichr/pkg/library"
)

var (
	pickerCursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	pickerSelectedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	pickerNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	pickerDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// LibraryPicker is the bubbletea model behind 'libraries --select'. Typing
// narrows the list, space toggles a library, enter confirms.
type LibraryPicker struct {
	All       []string
	Filter    string
	Cursor    int
	Offset    int
	Height    int
	Chosen    map[string]bool
	Order     []string // chosen names in the order they were picked
	Confirmed bool
}

// NewLibraryPicker creates a picker over names.
func NewLibraryPicker(names []string) LibraryPicker {
	return LibraryPicker{All: names, Height: 15, Chosen: make(map[string]bool)}
}

// Visible returns the names matching the current filter.
func (m LibraryPicker) Visible() []string {
	return library.Filter(m.All, m.Filter)
}

// Selected returns the confirmed selection in pick order.
func (m LibraryPicker) Selected() []string {
	if !m.Confirmed {
		return nil
	}
	return append([]string(nil), m.Order...)
}

func (m LibraryPicker) Init() tea.Cmd {
	return nil
}

func (m LibraryPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		visible := m.Visible()
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.Confirmed = len(m.Order) > 0
			if m.Confirmed {
				return m, tea.Quit
			}
		case tea.KeyUp:
			if m.Cursor > 0 {
				m.Cursor--
			}
		case tea.KeyDown:
			if m.Cursor < len(visible)-1 {
				m.Cursor++
			}
		case tea.KeySpace:
			if m.Cursor < len(visible) {
				m.toggle(visible[m.Cursor])
			}
		case tea.KeyBackspace:
			if r := []rune(m.Filter); len(r) > 0 {
				m.Filter = string(r[:len(r)-1])
				m.Cursor, m.Offset = 0, 0
			}
		case tea.KeyRunes:
			m.Filter += string(msg.Runes)
			m.Cursor, m.Offset = 0, 0
		}
		m.scroll()
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-7, 5)
		m.scroll()
	}
	return m, nil
}

func (m *LibraryPicker) toggle(name string) {
	if m.Chosen[name] {
		delete(m.Chosen, name)
		for i, n := range m.Order {
			if n == name {
				m.Order = append(m.Order[:i], m.Order[i+1:]...)
				break
			}
		}
		return
	}
	m.Chosen[name] = true
	m.Order = append(m.Order, name)
}

func (m *LibraryPicker) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m LibraryPicker) View() string {
	var b strings.Builder
	visible := m.Visible()

	b.WriteString(StyleTitle.Render("Select Libraries"))
	b.WriteString("\n")
	b.WriteString(pickerDimStyle.Render("type to filter  ↑/↓ move  space toggle  ⏎ confirm  esc quit"))
	b.WriteString("\n\n")
	b.WriteString("filter: " + StyleValue.Render(m.Filter) + "\n\n")

	end := min(m.Offset+m.Height, len(visible))
	for i := m.Offset; i < end; i++ {
		name := visible[i]
		box := "[ ]"
		if m.Chosen[name] {
			box = "[x]"
		}
		line := box + " " + name
		switch {
		case i == m.Cursor:
			b.WriteString(pickerCursorStyle.Render("▸ " + line))
		case m.Chosen[name]:
			b.WriteString(pickerSelectedStyle.Render("  " + line))
		default:
			b.WriteString(pickerNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(visible) == 0 {
		b.WriteString(pickerDimStyle.Render("  no matching libraries") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(pickerDimStyle.Render(fmt.Sprintf("  %d shown · %d selected", len(visible), len(m.Order))))
	return b.String()
}
