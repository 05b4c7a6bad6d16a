package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/ledger"
)

func sampleActivities() []ledger.Activity {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	return []ledger.Activity{
		{
			ID: "a1", UserID: "u", ActivityType: emissions.ActivityCar, Category: emissions.CategoryTransportation,
			Value: 10, Unit: emissions.UnitKilometre, EmissionsCO2: 2.1, Date: day(1), Notes: "commute",
		},
		{
			ID: "a2", UserID: "u", ActivityType: emissions.ActivityFlight, Category: emissions.CategoryTransportation,
			Value: 500, Unit: emissions.UnitKilometre, EmissionsCO2: 127.5, Date: day(2),
		},
		{
			ID: "a3", UserID: "u", ActivityType: emissions.ActivityRecycling, Category: emissions.CategoryWaste,
			Value: 5, Unit: emissions.UnitKilogram, EmissionsCO2: -1, Date: day(3), Notes: "weekly bins",
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case keyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case keyEsc:
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(t *testing.T, m BrowserModel, msg tea.Msg) (BrowserModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	bm, ok := next.(BrowserModel)
	require.True(t, ok)
	return bm, cmd
}

func TestNewBrowserModel_SortsNewestFirst(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), nil)

	assert.Equal(t, ViewStateList, m.state)
	require.Len(t, m.rows, 3)
	assert.Equal(t, "a3", m.rows[0].ID)
	assert.Equal(t, "a1", m.rows[2].ID)
	assert.Nil(t, m.Init())

	view := m.View()
	assert.Contains(t, view, "Activities")
	assert.Contains(t, view, "3 of 3 activities")
	assert.Contains(t, view, "128.60 kg CO2e")
	assert.Contains(t, view, "sort: date")
	assert.NotContains(t, view, "toggle verified")
}

func TestBrowserModel_CycleSort(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), nil)

	m, _ = update(t, m, key(keySort))
	assert.Equal(t, SortByEmissions, m.sortBy)
	assert.Equal(t, "a2", m.rows[0].ID)
	assert.Equal(t, "a3", m.rows[2].ID)

	m, _ = update(t, m, key(keySort))
	assert.Equal(t, SortByType, m.sortBy)
	assert.Equal(t, emissions.ActivityCar, m.rows[0].ActivityType)

	m, _ = update(t, m, key(keySort))
	assert.Equal(t, SortByDate, m.sortBy)
}

func TestBrowserModel_Filter(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), nil)

	m, cmd := update(t, m, key(keySlash))
	assert.True(t, m.showFilter)
	assert.NotNil(t, cmd)

	for _, r := range "waste" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, _ = update(t, m, key(keyEnter))
	assert.False(t, m.showFilter)
	require.Len(t, m.rows, 1)
	assert.Equal(t, "a3", m.rows[0].ID)
	assert.Contains(t, m.View(), `filter: "waste"`)

	m, _ = update(t, m, key(keyEsc))
	assert.Len(t, m.rows, 3)
}

func TestBrowserModel_DetailNavigation(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), nil)

	m, _ = update(t, m, key(keyEnter))
	assert.Equal(t, ViewStateDetail, m.state)
	assert.Equal(t, "a3", m.current.ID)

	view := m.View()
	assert.Contains(t, view, "Activity a3")
	assert.Contains(t, view, "weekly bins")
	assert.Contains(t, view, "-1.00 kg CO2e")

	m, _ = update(t, m, key(keyEsc))
	assert.Equal(t, ViewStateList, m.state)

	m, cmd := update(t, m, key(keyQuit))
	assert.Equal(t, ViewStateQuitting, m.state)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestBrowserModel_ToggleVerified(t *testing.T) {
	var calls []string
	verify := func(_ context.Context, id string, verified bool) (ledger.Activity, error) {
		calls = append(calls, id)
		for _, a := range sampleActivities() {
			if a.ID == id {
				a.Verified = verified
				return a, nil
			}
		}
		return ledger.Activity{}, ledger.ErrNotFound
	}
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), verify)
	assert.Contains(t, m.View(), "toggle verified")

	m, cmd := update(t, m, key(keyVerify))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{"a3"}, calls)
	assert.True(t, m.rows[0].Verified)
	assert.Contains(t, m.View(), "Activity a3 verified: true")
}

func TestBrowserModel_ToggleVerifiedError(t *testing.T) {
	verify := func(context.Context, string, bool) (ledger.Activity, error) {
		return ledger.Activity{}, errors.New("store offline")
	}
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), verify)

	m, _ = update(t, m, key(keyEnter))
	m, cmd := update(t, m, key(keyVerify))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.False(t, m.current.Verified)
	assert.Contains(t, m.View(), "Error: store offline")
}

func TestBrowserModel_ReadOnlyVerify(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), nil)
	_, cmd := update(t, m, key(keyVerify))
	assert.Nil(t, cmd)
}

func TestBrowserModel_EmptyLedger(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", nil, nil)
	m, _ = update(t, m, key(keyEnter))
	assert.Equal(t, ViewStateList, m.state)
	assert.Contains(t, m.View(), "0 of 0 activities")
}

func TestBrowserModel_WindowResize(t *testing.T) {
	m := NewBrowserModel(context.Background(), "Activities", sampleActivities(), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.Equal(t, 80, m.width)
	assert.Equal(t, 30, m.height)
	assert.Contains(t, m.View(), "3 of 3 activities")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
