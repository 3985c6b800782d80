package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wesm/livesearch/internal/search"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().Bold(true)

	separatorStyle = lipgloss.NewStyle().Faint(true)

	// Cursor row: subtle lighter background
	cursorRowStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"})

	hintStyle = lipgloss.NewStyle().Faint(true)

	noHitsStyle = lipgloss.NewStyle().Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#cc0000", Dark: "#ff5555"})

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"})
)

// defaultWidth is used before the first WindowSizeMsg arrives.
const defaultWidth = 80

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width == 0 {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(m.titleView(width))
	b.WriteString("\n\n")
	b.WriteString(m.inputView())
	b.WriteString("\n\n")
	b.WriteString(m.bodyView(width))
	b.WriteString("\n")
	b.WriteString(m.footerView(width))
	return b.String()
}

func (m Model) titleView(width int) string {
	title := "livesearch"
	if m.version != "" {
		title += " " + m.version
	}
	if m.source != "" {
		title += " - " + m.source
	}
	return titleBarStyle.Render(padRight(truncateRunes(title, width-2), width-2))
}

func (m Model) inputView() string {
	line := m.input.View()
	if m.view.kind == search.StateLoading {
		line += " " + spinnerStyle.Render(spinnerFrames[m.spinnerFrame])
	}
	return line
}

func (m Model) bodyView(width int) string {
	switch m.view.kind {
	case search.StateLoading:
		return hintStyle.Render("Searching...")
	case search.StateNoHits:
		if m.view.err != nil {
			return errorStyle.Render(truncateRunes("Search failed: "+m.view.err.Error(), width)) +
				"\n" + noHitsStyle.Render("No results")
		}
		return noHitsStyle.Render("No results")
	case search.StateResults:
		return m.resultsView(width)
	}
	return hintStyle.Render("Type to search. Enter and arrow keys do not start a search.")
}

// resultsView renders the result table: a sequence number, then one column
// per field of the first item.
func (m Model) resultsView(width int) string {
	items := m.view.items
	names := columnNames(items)

	header := append([]string{"#"}, names...)
	rows := make([][]string, len(items))
	for i, it := range items {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1))
		for _, name := range names {
			v, _ := it.Get(name)
			row = append(row, v)
		}
		rows[i] = row
	}

	widths := columnWidths(header, rows, width)

	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(formatRow(header, widths)))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", sum(widths)+len(widths)-1)))
	for i, row := range rows {
		b.WriteString("\n")
		line := formatRow(row, widths)
		if i == m.cursor {
			line = cursorRowStyle.Render(line)
		}
		b.WriteString(line)
	}
	return b.String()
}

func (m Model) footerView(width int) string {
	status := ""
	switch m.view.kind {
	case search.StateResults:
		status = fmt.Sprintf("%d results • ", len(m.view.items))
	case search.StateNoHits:
		status = "0 results • "
	}
	return footerStyle.Render(truncateRunes(status+"↑/↓ move • esc clear • ctrl+c quit", width))
}

// columnNames returns the field names of the first item.
func columnNames(items []search.Item) []string {
	if len(items) == 0 {
		return nil
	}
	names := make([]string, len(items[0].Fields))
	for i, f := range items[0].Fields {
		names[i] = f.Name
	}
	return names
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
