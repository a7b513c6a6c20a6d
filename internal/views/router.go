// Package views holds the registry of pages the shell can show and the
// mapping from mutations to the pages that must reload.
package views

import "strings"

// Name identifies a view in URLs, templates and refresh events.
type Name string

const (
	Dashboard Name = "dashboard"
	Expenses  Name = "expenses"
	Analytics Name = "analytics"
	Budgets   Name = "budgets"
	Goals     Name = "goals"
	Settings  Name = "settings"
)

// View describes one page.
type View struct {
	Name     Name
	Title    string
	Subtitle string
	// Partial is the template rendered for GET /ui/{name}.
	Partial string
}

// RefreshEvent is the HX-Trigger event name that reloads the view.
func (v View) RefreshEvent() string {
	return RefreshEvent(v.Name)
}

// RefreshEvent returns "<name>:refresh".
func RefreshEvent(n Name) string {
	return string(n) + ":refresh"
}

// NavItem is a view as rendered in the navigation bar.
type NavItem struct {
	View
	Active bool
}

// Router resolves view names. The zero value is not usable; call NewRouter.
type Router struct {
	views  []View
	byName map[Name]View
}

var registry = []View{
	{Name: Dashboard, Title: "Dashboard", Subtitle: "Your spending at a glance", Partial: "view_dashboard"},
	{Name: Expenses, Title: "Expenses", Subtitle: "Add, filter and export expenses", Partial: "view_expenses"},
	{Name: Analytics, Title: "Analytics", Subtitle: "Where the money goes", Partial: "view_analytics"},
	{Name: Budgets, Title: "Budgets", Subtitle: "Limits per category", Partial: "view_budgets"},
	{Name: Goals, Title: "Goals", Subtitle: "Savings targets", Partial: "view_goals"},
	{Name: Settings, Title: "Settings", Subtitle: "Currency and theme", Partial: "view_settings"},
}

// NewRouter returns a router over the six views in navigation order.
func NewRouter() *Router {
	r := &Router{
		views:  make([]View, len(registry)),
		byName: make(map[Name]View, len(registry)),
	}
	copy(r.views, registry)
	for _, v := range registry {
		r.byName[v.Name] = v
	}
	return r
}

// Views returns every view in navigation order.
func (r *Router) Views() []View {
	out := make([]View, len(r.views))
	copy(out, r.views)
	return out
}

// Lookup finds a view by name, case-insensitively.
func (r *Router) Lookup(name string) (View, bool) {
	v, ok := r.byName[Name(strings.ToLower(strings.TrimSpace(name)))]
	return v, ok
}

// Resolve returns the named view, or the dashboard for unknown names.
func (r *Router) Resolve(name string) View {
	if v, ok := r.Lookup(name); ok {
		return v
	}
	return r.byName[Dashboard]
}

// Nav returns the navigation items with exactly one marked active.
func (r *Router) Nav(active string) []NavItem {
	current := r.Resolve(active).Name
	items := make([]NavItem, len(r.views))
	for i, v := range r.views {
		items[i] = NavItem{View: v, Active: v.Name == current}
	}
	return items
}

// affected lists which views show data derived from each entity.
var affected = map[string][]Name{
	"expense":  {Dashboard, Expenses, Analytics, Budgets},
	"budget":   {Budgets, Dashboard},
	"goal":     {Goals},
	"settings": {Dashboard, Expenses, Analytics, Budgets, Goals, Settings},
}

// RefreshEvents returns the refresh events to fire after entity changed.
// Unknown entities refresh nothing.
func RefreshEvents(entity string) []string {
	names := affected[entity]
	events := make([]string, len(names))
	for i, n := range names {
		events[i] = RefreshEvent(n)
	}
	return events
}
