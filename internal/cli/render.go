package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/greenops"
)

const (
	tabPadding = 2
	dateLayout = "2006-01-02"
)

//nolint:gochecknoglobals // lipgloss styles are immutable values
var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// isWriterTerminal reports whether w is an interactive terminal. Buffers
// used in tests never are.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// wantJSON reports whether the active output format is JSON.
func wantJSON() bool {
	return config.GetDefaultOutputFormat() == config.FormatJSON
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeHeading prints a section title, styled on terminals and underlined
// otherwise.
func writeHeading(w io.Writer, title string) {
	if isWriterTerminal(w) {
		fmt.Fprintln(w, headingStyle.Render(title))
		return
	}
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

func styled(w io.Writer, style lipgloss.Style, s string) string {
	if isWriterTerminal(w) {
		return style.Render(s)
	}
	return s
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	rules := make([]string, len(headers))
	for i, h := range headers {
		rules[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	return tw
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}

// formatAmount renders a plain number at the configured precision.
func formatAmount(v float64) string {
	return greenops.FormatFloat(v, config.GetOutputPrecision())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// parseDateFlag accepts YYYY-MM-DD or RFC 3339. An empty value yields nil.
func parseDateFlag(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD or RFC 3339, got %q", name, raw)
	}
	return &t, nil
}
