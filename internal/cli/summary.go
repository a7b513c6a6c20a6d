package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"spendview/internal/core"
	"spendview/internal/services"
)

const commandTimeout = 30 * time.Second

func (a *App) newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print dashboard totals, recent expenses and budget status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSummary(cmd.Context())
		},
	}
}

func (a *App) runSummary(ctx context.Context) error {
	e, err := a.setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	tracker, ctx, cleanup, err := a.tracker(ctx, e)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := tracker.Dashboard(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("fetch dashboard: %w", err)
	}
	return renderSummary(a.out, data)
}

func renderSummary(out io.Writer, data services.DashboardData) error {
	cur := data.Settings.Currency
	money := func(v float64) string { return core.FormatMoney(v, cur) }

	totals := pterm.TableData{
		{"Total", "Expenses", "Average", "This month"},
		{money(data.Summary.Total), humanize.Comma(int64(data.Summary.Count)), money(data.Summary.Average), money(data.Summary.MonthTotal)},
	}
	if err := printTable(out, "Summary", totals); err != nil {
		return err
	}

	if len(data.Recent) == 0 {
		fmt.Fprintln(out, pterm.Info.Sprint("No expenses yet"))
	} else {
		recent := pterm.TableData{{"Date", "Category", "Amount", "Notes"}}
		for _, exp := range data.Recent {
			recent = append(recent, []string{
				exp.Date.CalendarDay().String(),
				exp.Category,
				money(exp.Amount),
				exp.Notes,
			})
		}
		if err := printTable(out, "Recent expenses", recent); err != nil {
			return err
		}
	}

	if len(data.Budgets) == 0 {
		return nil
	}
	budgets := pterm.TableData{{"Category", "Spent", "Limit", "Remaining", "Used"}}
	for _, b := range data.Budgets {
		budgets = append(budgets, []string{
			b.Category,
			money(b.Spent),
			money(b.Limit),
			money(b.Remaining),
			levelStyle(b.Level()).Sprintf("%.1f%%", b.Percentage),
		})
	}
	return printTable(out, "Budgets", budgets)
}

func levelStyle(l core.BudgetLevel) *pterm.Style {
	switch l {
	case core.LevelExceeded:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case core.LevelWarning:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGreen)
	}
}

func printTable(out io.Writer, title string, data pterm.TableData) error {
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	fmt.Fprintln(out, pterm.DefaultSection.Sprint(title))
	fmt.Fprintln(out, rendered)
	return nil
}

func printError(out io.Writer, err error) {
	fmt.Fprintln(out, pterm.Error.Sprint(err))
}
