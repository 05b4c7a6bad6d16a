package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
)

const dateLayout = "2006-01-02"

type recordActivityRequest struct {
	ActivityType string     `json:"activityType" validate:"required"`
	Value        *float64   `json:"value" validate:"required"`
	Unit         string     `json:"unit,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	Notes        string     `json:"notes,omitempty" validate:"max=1000"`
}

type patchActivityRequest struct {
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Verified *bool   `json:"verified,omitempty"`
}

type updateGoalsRequest struct {
	DailyGoal       *float64 `json:"dailyGoal,omitempty" validate:"omitempty,gt=0"`
	WeeklyGoal      *float64 `json:"weeklyGoal,omitempty" validate:"omitempty,gt=0"`
	MonthlyGoal     *float64 `json:"monthlyGoal,omitempty" validate:"omitempty,gt=0"`
	YearlyGoal      *float64 `json:"yearlyGoal,omitempty" validate:"omitempty,gt=0"`
	ReductionTarget *float64 `json:"reductionTarget,omitempty" validate:"omitempty,gte=0"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) listFactors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Factors())
}

func (s *Server) recordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.tracker.Record(r.Context(), ledger.NewActivity{
		UserID:       mux.Vars(r)["userId"],
		ActivityType: emissions.ActivityType(req.ActivityType),
		Value:        req.Value,
		Unit:         emissions.Unit(req.Unit),
		Date:         req.Date,
		Notes:        req.Notes,
	})
	if s.writeFailed(w, r, err) {
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	acts, err := s.tracker.List(r.Context(), mux.Vars(r)["userId"], rng)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if acts == nil {
		acts = []ledger.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.tracker.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) patchActivity(w http.ResponseWriter, r *http.Request) {
	var req patchActivityRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.tracker.Update(r.Context(), mux.Vars(r)["id"], ledger.ActivityPatch{
		Notes:    req.Notes,
		Verified: req.Verified,
	})
	if s.writeFailed(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if s.writeFailed(w, r, s.tracker.Delete(r.Context(), mux.Vars(r)["id"])) {
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) getStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.Statistics(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) recomputeStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.Recompute(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.tracker.Summary(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	ev, err := s.tracker.Evaluate(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) getGoals(w http.ResponseWriter, r *http.Request) {
	g, err := s.tracker.Goals(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) updateGoals(w http.ResponseWriter, r *http.Request) {
	var req updateGoalsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.tracker.UpdateGoals(r.Context(), mux.Vars(r)["userId"], goals.Update{
		DailyGoal:       req.DailyGoal,
		WeeklyGoal:      req.WeeklyGoal,
		MonthlyGoal:     req.MonthlyGoal,
		YearlyGoal:      req.YearlyGoal,
		ReductionTarget: req.ReductionTarget,
	})
	if s.writeFailed(w, r, err) {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) listInsights(w http.ResponseWriter, r *http.Request) {
	ins, err := s.tracker.ListInsights(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

func (s *Server) adoptInsight(w http.ResponseWriter, r *http.Request) {
	in, err := s.tracker.AdoptInsight(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) listAchievements(w http.ResponseWriter, r *http.Request) {
	achs, err := s.tracker.ListAchievements(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, achs)
}

// decode reads a JSON body into dst and validates it. Unknown fields are
// rejected.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return s.validate.Struct(dst)
}

// parseRange reads the optional from/to query parameters. Plain dates cover
// whole UTC days; RFC 3339 timestamps are used as given.
func parseRange(r *http.Request) (*ledger.DateRange, error) {
	q := r.URL.Query()
	fromRaw, toRaw := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if fromRaw == "" && toRaw == "" {
		return nil, nil
	}

	var rng ledger.DateRange
	if fromRaw != "" {
		t, day, err := parseTime(fromRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: from: %v", errBadRequest, err)
		}
		rng.From = t
		if day {
			rng.From = ledger.DayRange(t, time.Time{}).From
		}
	}
	if toRaw != "" {
		t, day, err := parseTime(toRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: to: %v", errBadRequest, err)
		}
		rng.To = t
		if day {
			rng.To = ledger.DayRange(time.Time{}, t).To
		}
	}
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.To.Before(rng.From) {
		return nil, fmt.Errorf("%w: to is before from", errBadRequest)
	}
	return &rng, nil
}

func parseTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", raw)
	}
	return t.UTC(), false, nil
}
