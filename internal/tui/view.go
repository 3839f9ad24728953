package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	busyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	overlayStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

const minColWidth = 8

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(a.viewQueryLine())
	b.WriteString("\n")

	tableHeight := a.height - 6
	treeHeight := tableHeight / 3
	tableHeight -= treeHeight
	if tableHeight < 3 {
		tableHeight = 3
	}

	b.WriteString(a.viewTable(tableHeight))
	b.WriteString("\n")
	b.WriteString(a.viewTree(treeHeight))
	b.WriteString("\n")
	b.WriteString(a.viewStatus())

	switch a.focus {
	case focusMenu:
		return a.withOverlay(b.String(), a.viewMenu())
	case focusFilter:
		return a.withOverlay(b.String(), a.viewFilter())
	case focusConfirm:
		return a.withOverlay(b.String(), a.viewConfirm())
	}
	return b.String()
}

func (a *App) viewQueryLine() string {
	line := a.queryInput.View()
	if a.parseErr != "" {
		line += "\n" + errStyle.Render("  "+a.parseErr)
	}
	return line
}

func (a *App) viewTable(height int) string {
	cols := a.table.Columns()
	if len(cols) == 0 {
		return metaStyle.Render("(no columns)")
	}

	colWidth := a.width / len(cols)
	if colWidth < minColWidth {
		colWidth = minColWidth
	}

	var b strings.Builder
	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = pad(col.Title(), colWidth)
	}
	b.WriteString(headerStyle.Render(strings.Join(header, "")))
	b.WriteString("\n")

	rows := a.table.RowCount()
	top := a.cursor - height/2
	if top > rows-height {
		top = rows - height
	}
	if top < 0 {
		top = 0
	}

	for row := top; row < rows && row < top+height; row++ {
		cells := make([]string, len(cols))
		for col := range cols {
			text := pad(a.table.Display(row, col), colWidth)
			if a.table.Emphasized(col) {
				text = metaStyle.Render(text)
			}
			cells[col] = text
		}
		line := strings.Join(cells, "")
		if row == a.cursor && a.focus != focusQuery {
			line = cursorStyle.Render(strips(line))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	state := fmt.Sprintf("%d row(s)", rows)
	if !a.drained {
		state += " (loading...)"
	}
	b.WriteString(metaStyle.Render(state))
	return b.String()
}

func (a *App) viewTree(height int) string {
	if len(a.treePane.rows) == 0 {
		return metaStyle.Render("(select a record to inspect)")
	}

	var b strings.Builder
	top := a.treePane.cursor - height/2
	if top < 0 {
		top = 0
	}
	for i := top; i < len(a.treePane.rows) && i < top+height; i++ {
		row := a.treePane.rows[i]
		marker := "  "
		if row.node.ChildCount() > 0 {
			if a.treePane.expanded[row.node] {
				marker = "- "
			} else {
				marker = "+ "
			}
		}
		line := fmt.Sprintf("%s%s%s  %s  %s",
			strings.Repeat("  ", row.depth),
			marker,
			row.node.Key(),
			metaStyle.Render(row.node.TypeLabel()),
			truncate(row.node.Display(), a.width/2),
		)
		if i == a.treePane.cursor && a.focus == focusTree {
			line = cursorStyle.Render(strips(line))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) viewStatus() string {
	parts := []string{}
	if a.counts.Blocking > 0 {
		parts = append(parts, busyStyle.Render(a.spin.View()+" busy"))
	} else if a.counts.Running > 0 {
		parts = append(parts, a.spin.View()+fmt.Sprintf(" %d task(s)", a.counts.Running))
	}
	if a.store != nil {
		parts = append(parts, metaStyle.Render(a.store.URI()))
	} else {
		parts = append(parts, warnStyle.Render("no store connected"))
	}
	switch a.status.level {
	case levelError:
		parts = append(parts, errStyle.Render(a.status.text))
	case levelWarn:
		parts = append(parts, warnStyle.Render(a.status.text))
	default:
		if a.status.text != "" {
			parts = append(parts, a.status.text)
		}
	}
	parts = append(parts, metaStyle.Render("tab:query a:actions t:types r:refresh q:quit"))
	return strings.Join(parts, "  ")
}

func (a *App) viewMenu() string {
	var b strings.Builder
	for si, section := range a.menu.Sections {
		b.WriteString(sectionStyle.Render(section.Label))
		b.WriteString("\n")
		for ii, item := range section.Items {
			line := "  " + item.Label
			if si == a.menuSection && ii == a.menuItem {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString(metaStyle.Render("enter:run esc:close"))
	return b.String()
}

func (a *App) viewFilter() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Type filter"))
	b.WriteString("\n")
	entries := make([]string, 0, len(a.typeEntries)+1)
	entries = append(entries, "(all types)")
	for _, e := range a.typeEntries {
		entries = append(entries, e.Name)
	}
	for i, name := range entries {
		line := "  " + name
		if i == a.typeCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(metaStyle.Render("enter:apply esc:close"))
	return b.String()
}

func (a *App) viewConfirm() string {
	prompt := ""
	if a.pending != nil {
		prompt = a.pending.prompt
	}
	return prompt + "\n\n" + metaStyle.Render("y:confirm n:cancel")
}

func (a *App) withOverlay(_ string, overlay string) string {
	box := overlayStyle.Render(overlay)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func pad(s string, width int) string {
	s = truncate(s, width-1)
	return s + strings.Repeat(" ", width-len([]rune(s)))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width > 3 && len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s
}

// strips removes styling escapes so reverse-video cursor lines render
// uniformly.
func strips(s string) string {
	for {
		start := strings.IndexByte(s, 0x1b)
		if start < 0 {
			return s
		}
		end := strings.IndexByte(s[start:], 'm')
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+end+1:]
	}
}
