package http

import (
	"fmt"
	"net/http"

	"spendview/internal/core"
	applog "spendview/internal/log"
)

// mutated answers a successful change: reset the form, notify and refresh
// every view that shows entity.
func (s *Server) mutated(entity, message string) *HTMXResponseBuilder {
	s.metrics.mutated(entity)
	return NewHTMXResponse().
		TriggerFormReset().
		TriggerSuccessNotification(message).
		TriggerRefresh(entity)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	in, err := ParseExpenseForm(p, s.tracker.DisplaySettings(r.Context()).Currency)
	if err != nil {
		s.writeError(w, r, err, applog.OpValidate)
		return
	}
	e, err := s.tracker.CreateExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate)
		return
	}
	msg := fmt.Sprintf("Added %s for %s", core.FormatMoney(e.Amount, in.Currency), in.Category)
	s.mutated("expense", msg).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	p, err := parseBody(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	in, err := ParseExpenseForm(p, s.tracker.DisplaySettings(r.Context()).Currency)
	if err != nil {
		s.writeError(w, r, err, applog.OpValidate)
		return
	}
	if _, err := s.tracker.UpdateExpense(r.Context(), id, in); err != nil {
		s.writeError(w, r, err, applog.OpUpdate)
		return
	}
	s.mutated("expense", "Expense updated").Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	if err := s.tracker.DeleteExpense(r.Context(), id); err != nil {
		s.writeError(w, r, err, applog.OpDelete)
		return
	}
	s.mutated("expense", "Expense deleted").Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	in, err := ParseBudgetForm(p, s.tracker.DisplaySettings(r.Context()).Currency)
	if err != nil {
		s.writeError(w, r, err, applog.OpValidate)
		return
	}
	b, err := s.tracker.CreateBudget(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate)
		return
	}
	s.mutated("budget", fmt.Sprintf("Budget for %s created", b.Category)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	if err := s.tracker.DeleteBudget(r.Context(), id); err != nil {
		s.writeError(w, r, err, applog.OpDelete)
		return
	}
	s.mutated("budget", "Budget deleted").Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	in, err := ParseGoalForm(p, s.tracker.DisplaySettings(r.Context()).Currency)
	if err != nil {
		s.writeError(w, r, err, applog.OpValidate)
		return
	}
	g, err := s.tracker.CreateGoal(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, applog.OpCreate)
		return
	}
	s.mutated("goal", fmt.Sprintf("Goal %q created", g.Name)).Write(w)
}

func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	p, err := parseBody(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		s.writeError(w, r, err, applog.OpValidate)
		return
	}
	g, err := s.tracker.ContributeToGoal(r.Context(), id, amount)
	if err != nil {
		s.writeError(w, r, err, applog.OpContribute)
		return
	}
	msg := fmt.Sprintf("%s is at %.0f%%", g.Name, g.Progress())
	if g.Reached() {
		msg = fmt.Sprintf("%s reached!", g.Name)
	}
	s.mutated("goal", msg).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	if err := s.tracker.DeleteGoal(r.Context(), id); err != nil {
		s.writeError(w, r, err, applog.OpDelete)
		return
	}
	s.mutated("goal", "Goal deleted").Write(w)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		s.writeError(w, r, err, applog.OpParse)
		return
	}
	in, err := ParseSettingsForm(p)
	if err != nil {
		s.writeError(w, r, err, applog.OpValidate)
		return
	}
	saved, err := s.tracker.SaveSettings(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, applog.OpUpdate)
		return
	}
	s.mutated("settings", "Settings saved").
		TriggerThemeChanged(string(saved.Theme)).
		Write(w)
}
