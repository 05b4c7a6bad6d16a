package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
)

// ViewState is the screen the browser is showing.
type ViewState int

const (
	ViewStateList ViewState = iota
	ViewStateDetail
	ViewStateQuitting
)

// SortField orders the activity table.
type SortField int

const (
	SortByDate SortField = iota
	SortByEmissions
	SortByType
	numSortFields
)

func (s SortField) String() string {
	switch s {
	case SortByDate:
		return "date"
	case SortByEmissions:
		return "emissions"
	case SortByType:
		return "type"
	default:
		return "unknown"
	}
}

// VerifyFunc flips the verified flag of an activity and returns the stored
// result.
type VerifyFunc func(ctx context.Context, id string, verified bool) (ledger.Activity, error)

// activityUpdatedMsg carries the outcome of an asynchronous verify.
type activityUpdatedMsg struct {
	activity ledger.Activity
	err      error
}

// BrowserModel is the Bubble Tea model for browsing a user's ledger.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BrowserModel struct {
	ctx    context.Context
	title  string
	verify VerifyFunc

	state   ViewState
	all     []ledger.Activity // source of truth
	rows    []ledger.Activity // filtered and sorted
	sortBy  SortField
	current ledger.Activity

	table      table.Model
	textInput  textinput.Model
	showFilter bool

	width  int
	height int
	status string
	err    error
}

// NewBrowserModel builds a browser over activities. verify may be nil, in
// which case the view is read-only.
func NewBrowserModel(ctx context.Context, title string, activities []ledger.Activity, verify VerifyFunc) BrowserModel {
	ti := textinput.New()
	ti.Placeholder = "type, category, notes or date"
	ti.CharLimit = 64

	all := make([]ledger.Activity, len(activities))
	copy(all, activities)

	m := BrowserModel{
		ctx:       ctx,
		title:     title,
		verify:    verify,
		state:     ViewStateList,
		all:       all,
		sortBy:    SortByDate,
		textInput: ti,
		width:     defaultWidth,
		height:    defaultHeight,
	}
	m.applyFilter("")
	return m
}

// Init initializes the model (Bubble Tea interface).
func (m BrowserModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rebuildTable()
		return m, nil
	case activityUpdatedMsg:
		return m.handleActivityUpdated(msg)
	}

	if m.showFilter {
		return m.handleFilterInput(msg)
	}

	switch m.state {
	case ViewStateList:
		return m.handleListUpdate(msg)
	case ViewStateDetail:
		return m.handleDetailUpdate(msg)
	default:
		return m, nil
	}
}

func (m BrowserModel) handleFilterInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyEnter, keyEsc:
			m.showFilter = false
			m.textInput.Blur()
			m.applyFilter(m.textInput.Value())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m BrowserModel) handleListUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyEnter:
		if a, ok := m.selected(); ok {
			m.current = a
			m.state = ViewStateDetail
		}
		return m, nil
	case keySlash:
		m.showFilter = true
		m.textInput.Focus()
		return m, textinput.Blink
	case keySort:
		m.sortBy = (m.sortBy + 1) % numSortFields
		m.refreshTable()
		return m, nil
	case keyVerify:
		if a, ok := m.selected(); ok {
			return m, m.toggleVerified(a)
		}
		return m, nil
	case keyEsc:
		if m.textInput.Value() != "" {
			m.textInput.SetValue("")
			m.applyFilter("")
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(keyMsg)
		return m, cmd
	}
}

func (m BrowserModel) handleDetailUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyEsc:
		m.state = ViewStateList
		m.table.Focus()
	case keyVerify:
		return m, m.toggleVerified(m.current)
	}
	return m, nil
}

// toggleVerified returns a command that persists the flipped flag, or nil
// when the browser is read-only.
func (m BrowserModel) toggleVerified(a ledger.Activity) tea.Cmd {
	if m.verify == nil {
		return nil
	}
	ctx, verify := m.ctx, m.verify
	return func() tea.Msg {
		updated, err := verify(ctx, a.ID, !a.Verified)
		return activityUpdatedMsg{activity: updated, err: err}
	}
}

func (m BrowserModel) handleActivityUpdated(msg activityUpdatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		logging.FromContext(m.ctx).Warn().Ctx(m.ctx).
			Str("component", "tui").
			Err(msg.err).
			Msg("activity update failed")
		return m, nil
	}
	m.err = nil
	for i := range m.all {
		if m.all[i].ID == msg.activity.ID {
			m.all[i] = msg.activity
		}
	}
	if m.current.ID == msg.activity.ID {
		m.current = msg.activity
	}
	m.status = fmt.Sprintf("Activity %s verified: %t", msg.activity.ID, msg.activity.Verified)
	m.applyFilter(m.textInput.Value())
	return m, nil
}

func (m BrowserModel) selected() (ledger.Activity, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return ledger.Activity{}, false
	}
	return m.rows[i], true
}

// applyFilter keeps activities whose type, category, notes or date contain
// the query, then re-sorts.
func (m *BrowserModel) applyFilter(query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	rows := make([]ledger.Activity, 0, len(m.all))
	for _, a := range m.all {
		if query == "" || matchesQuery(a, query) {
			rows = append(rows, a)
		}
	}
	m.rows = rows
	m.refreshTable()
}

func matchesQuery(a ledger.Activity, query string) bool {
	fields := []string{
		string(a.ActivityType),
		string(a.Category),
		a.Notes,
		a.Date.Format(dateLayout),
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func (m *BrowserModel) refreshTable() {
	switch m.sortBy {
	case SortByDate:
		sort.SliceStable(m.rows, func(i, j int) bool {
			return m.rows[i].Date.After(m.rows[j].Date)
		})
	case SortByEmissions:
		sort.SliceStable(m.rows, func(i, j int) bool {
			return m.rows[i].EmissionsCO2 > m.rows[j].EmissionsCO2
		})
	case SortByType:
		sort.SliceStable(m.rows, func(i, j int) bool {
			return m.rows[i].ActivityType < m.rows[j].ActivityType
		})
	}
	m.rebuildTable()
}

func (m *BrowserModel) rebuildTable() {
	cursor := m.table.Cursor()
	m.table = m.buildTable()
	if cursor > 0 && cursor < len(m.rows) {
		m.table.SetCursor(cursor)
	}
}

func (m *BrowserModel) buildTable() table.Model {
	columns := []table.Column{
		{Title: "Date", Width: 10},      //nolint:mnd // Column width.
		{Title: "Type", Width: 16},      //nolint:mnd // Column width.
		{Title: "Category", Width: 14},  //nolint:mnd // Column width.
		{Title: "Value", Width: 12},     //nolint:mnd // Column width.
		{Title: "Emissions", Width: 12}, //nolint:mnd // Column width.
		{Title: "Verified", Width: 8},   //nolint:mnd // Column width.
		{Title: "Notes", Width: 20},     //nolint:mnd // Column width.
	}

	rows := make([]table.Row, len(m.rows))
	for i, a := range m.rows {
		verified := "no"
		if a.Verified {
			verified = "yes"
		}
		rows[i] = table.Row{
			a.Date.Format(dateLayout),
			string(a.ActivityType),
			string(a.Category),
			greenops.FormatFloat(a.Value, 2) + " " + string(a.Unit),
			greenops.FormatKg(a.EmissionsCO2),
			verified,
			truncate(a.Notes, 20), //nolint:mnd // Matches the Notes column.
		}
	}

	height := m.height - chromeHeight
	if height < minHeight {
		height = minHeight
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}

// Run starts the browser on the terminal and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, title string, activities []ledger.Activity, verify VerifyFunc) error {
	m := NewBrowserModel(ctx, title, activities, verify)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running activity browser: %w", err)
	}
	return nil
}
