package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
)

// state is the complete data set of the in-process backends. Callers hold mu.
type state struct {
	activities   map[string]ledger.Activity
	goals        map[string]goals.Goals
	insights     map[string]advisor.Insight
	achievements map[string]map[advisor.BadgeID]advisor.Achievement
}

func newState() *state {
	return &state{
		activities:   map[string]ledger.Activity{},
		goals:        map[string]goals.Goals{},
		insights:     map[string]advisor.Insight{},
		achievements: map[string]map[advisor.BadgeID]advisor.Achievement{},
	}
}

// Memory keeps everything in process. Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex
	st *state

	// tx, when set, runs every write with mu held. It applies fn to a copy of
	// the state and installs the copy once it is durable.
	tx func(fn func(st *state) error) error
	// refresh, when set, is called with mu held before every read so that
	// changes made by other processes are visible.
	refresh func() error
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// write runs fn under the write lock. A backend with a transaction hook
// commits through it; a failed commit leaves the state untouched.
func (m *Memory) write(fn func(st *state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tx == nil {
		return fn(m.st)
	}
	return m.tx(fn)
}

// rlock takes the read lock once the state is up to date and returns the
// matching unlock.
func (m *Memory) rlock() (func(), error) {
	if m.refresh != nil {
		m.mu.Lock()
		err := m.refresh()
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	return m.mu.RUnlock, nil
}

// InsertActivity stores a.
func (m *Memory) InsertActivity(_ context.Context, a ledger.Activity) error {
	return m.write(func(st *state) error {
		st.activities[a.ID] = a
		return nil
	})
}

// QueryActivities returns matching activities in unspecified order.
func (m *Memory) QueryActivities(_ context.Context, f ledger.Filter) ([]ledger.Activity, error) {
	unlock, err := m.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := []ledger.Activity{}
	if f.ID != "" {
		if a, ok := m.st.activities[f.ID]; ok && f.Matches(a) {
			out = append(out, a)
		}
		return out, nil
	}
	for _, a := range m.st.activities {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteActivity removes an activity, or returns ledger.ErrNotFound.
func (m *Memory) DeleteActivity(_ context.Context, id string) error {
	return m.write(func(st *state) error {
		if _, ok := st.activities[id]; !ok {
			return ledger.ErrNotFound
		}
		delete(st.activities, id)
		return nil
	})
}

// UpdateActivity applies patch, or returns ledger.ErrNotFound.
func (m *Memory) UpdateActivity(_ context.Context, id string, patch ledger.ActivityPatch) (ledger.Activity, error) {
	var updated ledger.Activity
	err := m.write(func(st *state) error {
		a, ok := st.activities[id]
		if !ok {
			return ledger.ErrNotFound
		}
		updated = patch.Apply(a)
		st.activities[id] = updated
		return nil
	})
	return updated, err
}

// FindGoals returns goals.ErrGoalsMissing when userID has none.
func (m *Memory) FindGoals(_ context.Context, userID string) (goals.Goals, error) {
	unlock, err := m.rlock()
	if err != nil {
		return goals.Goals{}, err
	}
	defer unlock()
	g, ok := m.st.goals[userID]
	if !ok {
		return goals.Goals{}, goals.ErrGoalsMissing
	}
	return g, nil
}

// CreateGoalsIfAbsent inserts g unless the user already has goals.
func (m *Memory) CreateGoalsIfAbsent(_ context.Context, g goals.Goals) (goals.Goals, error) {
	result := g
	err := m.write(func(st *state) error {
		if existing, ok := st.goals[g.UserID]; ok {
			result = existing
			return nil
		}
		st.goals[g.UserID] = g
		return nil
	})
	return result, err
}

// SaveGoals upserts g.
func (m *Memory) SaveGoals(_ context.Context, g goals.Goals) error {
	return m.write(func(st *state) error {
		st.goals[g.UserID] = g
		return nil
	})
}

// ListInsights returns a user's insights ordered by id.
func (m *Memory) ListInsights(_ context.Context, userID string) ([]advisor.Insight, error) {
	unlock, err := m.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := []advisor.Insight{}
	for _, in := range m.st.insights {
		if in.UserID == userID {
			out = append(out, cloneInsight(in))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetInsight returns advisor.ErrInsightNotFound for an unknown id.
func (m *Memory) GetInsight(_ context.Context, id string) (advisor.Insight, error) {
	unlock, err := m.rlock()
	if err != nil {
		return advisor.Insight{}, err
	}
	defer unlock()
	in, ok := m.st.insights[id]
	if !ok {
		return advisor.Insight{}, advisor.ErrInsightNotFound
	}
	return cloneInsight(in), nil
}

// SaveInsight upserts in by ID.
func (m *Memory) SaveInsight(_ context.Context, in advisor.Insight) error {
	return m.write(func(st *state) error {
		st.insights[in.ID] = cloneInsight(in)
		return nil
	})
}

// ListAchievements returns a user's stored achievements ordered by id.
func (m *Memory) ListAchievements(_ context.Context, userID string) ([]advisor.Achievement, error) {
	unlock, err := m.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	out := []advisor.Achievement{}
	for _, a := range m.st.achievements[userID] {
		out = append(out, cloneAchievement(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

// SaveAchievement upserts a by (UserID, AchievementID).
func (m *Memory) SaveAchievement(_ context.Context, a advisor.Achievement) error {
	return m.write(func(st *state) error {
		byID, ok := st.achievements[a.UserID]
		if !ok {
			byID = map[advisor.BadgeID]advisor.Achievement{}
			st.achievements[a.UserID] = byID
		}
		byID[a.AchievementID] = cloneAchievement(a)
		return nil
	})
}

// UserIDs lists users with activities or goals.
func (m *Memory) UserIDs(_ context.Context) ([]string, error) {
	unlock, err := m.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	seen := map[string]struct{}{}
	for _, a := range m.st.activities {
		seen[a.UserID] = struct{}{}
	}
	for id := range m.st.goals {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Close does nothing.
func (m *Memory) Close(context.Context) error { return nil }

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.activities {
		c.activities[k] = v
	}
	for k, v := range st.goals {
		c.goals[k] = v
	}
	for k, v := range st.insights {
		c.insights[k] = cloneInsight(v)
	}
	for user, byID := range st.achievements {
		m := make(map[advisor.BadgeID]advisor.Achievement, len(byID))
		for k, v := range byID {
			m[k] = cloneAchievement(v)
		}
		c.achievements[user] = m
	}
	return c
}

func cloneInsight(in advisor.Insight) advisor.Insight {
	if in.AdoptedDate != nil {
		t := *in.AdoptedDate
		in.AdoptedDate = &t
	}
	return in
}

func cloneAchievement(a advisor.Achievement) advisor.Achievement {
	if a.UnlockedDate != nil {
		t := *a.UnlockedDate
		a.UnlockedDate = &t
	}
	return a
}
