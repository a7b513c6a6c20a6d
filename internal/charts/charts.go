// Package charts builds Chart.js configurations from analytics data. The
// browser passes them to new Chart(canvas, config) unchanged.
package charts

import (
	"encoding/json"
	"fmt"

	"spendview/internal/core"
)

// Canvas element ids the analytics view renders.
const (
	CategoryCanvas = "categoryChart"
	TrendCanvas    = "trendChart"
	WeeklyCanvas   = "weeklyChart"
)

const (
	darkTextColor  = "#cbd5e1"
	lightTextColor = "#334155"
	trendColor     = "#3b82f6"
	trendFill      = "rgba(59, 130, 246, 0.1)"
	weeklyColor    = "#06b6d4"
	trendTension   = 0.4
)

// Palette cycles over doughnut slices.
var Palette = []string{"#3b82f6", "#06b6d4", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6"}

type (
	Chart struct {
		Type    string  `json:"type"`
		Data    Data    `json:"data"`
		Options Options `json:"options"`
	}

	Data struct {
		Labels   []string  `json:"labels"`
		Datasets []Dataset `json:"datasets"`
	}

	// Dataset carries BackgroundColor as a string or a list of strings.
	Dataset struct {
		Label           string    `json:"label,omitempty"`
		Data            []float64 `json:"data"`
		BackgroundColor any       `json:"backgroundColor,omitempty"`
		BorderColor     string    `json:"borderColor,omitempty"`
		Tension         float64   `json:"tension,omitempty"`
	}

	Options struct {
		Responsive bool            `json:"responsive"`
		Plugins    Plugins         `json:"plugins"`
		Scales     map[string]Axis `json:"scales,omitempty"`
	}

	Plugins struct {
		Legend Legend `json:"legend"`
	}

	Legend struct {
		Labels TextStyle `json:"labels"`
	}

	Axis struct {
		Ticks TextStyle `json:"ticks"`
	}

	TextStyle struct {
		Color string `json:"color"`
	}
)

func baseOptions(withScales bool) Options {
	o := Options{
		Responsive: true,
		Plugins:    Plugins{Legend: Legend{Labels: TextStyle{Color: darkTextColor}}},
	}
	if withScales {
		o.Scales = map[string]Axis{
			"x": {Ticks: TextStyle{Color: darkTextColor}},
			"y": {Ticks: TextStyle{Color: darkTextColor}},
		}
	}
	return o
}

// CategoryDoughnut shows total spend per category.
func CategoryDoughnut(breakdown []core.CategoryTotal) Chart {
	labels := make([]string, len(breakdown))
	data := make([]float64, len(breakdown))
	colors := make([]string, len(breakdown))
	for i, c := range breakdown {
		labels[i] = c.Category
		data[i] = c.Total
		colors[i] = Palette[i%len(Palette)]
	}
	return Chart{
		Type: "doughnut",
		Data: Data{
			Labels:   labels,
			Datasets: []Dataset{{Data: data, BackgroundColor: colors}},
		},
		Options: baseOptions(false),
	}
}

// DailyTrendLine plots spend per day in the order the backend returned.
func DailyTrendLine(trend []core.DailyTotal) Chart {
	labels := make([]string, len(trend))
	data := make([]float64, len(trend))
	for i, d := range trend {
		labels[i] = d.Date.String()
		data[i] = d.Total
	}
	return Chart{
		Type: "line",
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:           "Daily Spending",
				Data:            data,
				BorderColor:     trendColor,
				BackgroundColor: trendFill,
				Tension:         trendTension,
			}},
		},
		Options: baseOptions(true),
	}
}

// WeeklyBar plots spend per ISO week, in week order.
func WeeklyBar(weeks []core.WeeklyTotal) Chart {
	labels := make([]string, len(weeks))
	data := make([]float64, len(weeks))
	for i, w := range weeks {
		labels[i] = fmt.Sprintf("Week %d", w.Week)
		data[i] = w.Total
	}
	return Chart{
		Type: "bar",
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:           "Weekly Spending",
				Data:            data,
				BackgroundColor: weeklyColor,
			}},
		},
		Options: baseOptions(true),
	}
}

// SetTextColor recolours legend and axis labels.
func (c *Chart) SetTextColor(color string) {
	c.Options.Plugins.Legend.Labels.Color = color
	for k, axis := range c.Options.Scales {
		axis.Ticks.Color = color
		c.Options.Scales[k] = axis
	}
}

// Set maps canvas ids to chart configurations.
type Set map[string]Chart

// NewSet builds the three analytics charts, with label colours that stay
// readable on the given theme.
func NewSet(a core.Analytics, theme core.Theme) Set {
	set := Set{
		CategoryCanvas: CategoryDoughnut(a.CategoryBreakdown),
		TrendCanvas:    DailyTrendLine(a.DailyTrend),
		WeeklyCanvas:   WeeklyBar(a.SortedWeeks()),
	}
	if theme == core.Light {
		for id, c := range set {
			c.SetTextColor(lightTextColor)
			set[id] = c
		}
	}
	return set
}

// JSON encodes the set for the browser.
func (s Set) JSON() ([]byte, error) {
	return json.Marshal(s)
}
