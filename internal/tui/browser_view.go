package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/ledger"
)

const dateLayout = "2006-01-02"

// View renders the current view (Bubble Tea interface).
func (m BrowserModel) View() string {
	switch m.state {
	case ViewStateQuitting:
		return ""
	case ViewStateDetail:
		return m.renderDetailView()
	default:
		return m.renderListView()
	}
}

func (m BrowserModel) renderListView() string {
	sections := []string{
		HeaderStyle.Render(m.title),
		m.table.View(),
		m.renderStatusBar(),
	}
	if m.showFilter {
		sections = append(sections, LabelStyle.Render("Filter: ")+m.textInput.View())
	}
	if footer := m.renderFooter(); footer != "" {
		sections = append(sections, footer)
	}
	sections = append(sections, HelpStyle.Render(listHelp(m.verify != nil)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BrowserModel) renderStatusBar() string {
	parts := []string{
		fmt.Sprintf("%d of %d activities", len(m.rows), len(m.all)),
		greenops.FormatKg(totalEmissions(m.rows)) + " CO2e",
		"sort: " + m.sortBy.String(),
	}
	if q := m.textInput.Value(); q != "" {
		parts = append(parts, fmt.Sprintf("filter: %q", q))
	}
	return LabelStyle.Render(strings.Join(parts, " | "))
}

func (m BrowserModel) renderFooter() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: " + m.err.Error())
	}
	return m.status
}

func (m BrowserModel) renderDetailView() string {
	a := m.current
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Activity "+a.ID) + "\n\n")
	detailLine(&b, "Type", string(a.ActivityType))
	detailLine(&b, "Category", string(a.Category))
	detailLine(&b, "Date", a.Date.Format(dateLayout))
	detailLine(&b, "Value", greenops.FormatFloat(a.Value, 2)+" "+string(a.Unit))
	detailLine(&b, "Emissions", greenops.FormatKg(a.EmissionsCO2)+" CO2e")
	verified := "no"
	if a.Verified {
		verified = VerifiedStyle.Render("yes")
	}
	detailLine(&b, "Verified", verified)
	if a.Notes != "" {
		detailLine(&b, "Notes", a.Notes)
	}
	detailLine(&b, "Recorded", a.CreatedAt.Format("2006-01-02 15:04"))

	width := m.width - borderPadding
	if width <= 0 {
		width = defaultWidth - borderPadding
	}
	sections := []string{DetailBoxStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))}
	if footer := m.renderFooter(); footer != "" {
		sections = append(sections, footer)
	}
	sections = append(sections, HelpStyle.Render(detailHelp(m.verify != nil)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func detailLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", LabelStyle.Render(fmt.Sprintf("%-10s", label+":")), ValueStyle.Render(value))
}

func listHelp(editable bool) string {
	help := "enter: details | /: filter | s: sort | q: quit"
	if editable {
		help = "enter: details | /: filter | s: sort | v: toggle verified | q: quit"
	}
	return help
}

func detailHelp(editable bool) string {
	if editable {
		return "esc: back | v: toggle verified | q: quit"
	}
	return "esc: back | q: quit"
}

func totalEmissions(activities []ledger.Activity) float64 {
	var total float64
	for _, a := range activities {
		total += a.EmissionsCO2
	}
	return total
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 { //nolint:mnd // Room for the ellipsis.
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
