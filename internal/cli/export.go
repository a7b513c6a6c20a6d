package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"spendview/internal/core"
	"spendview/internal/export"
)

type exportFlags struct {
	format   string
	dir      string
	category string
	start    string
	end      string
}

func (a *App) newExportCommand() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write expenses to a CSV, JSON or PDF file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExport(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "csv", "Export format: csv, json, pdf")
	cmd.Flags().StringVarP(&f.dir, "out", "o", ".", "Directory to write the export file to")
	cmd.Flags().StringVar(&f.category, "category", "", "Only export this category")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (YYYY-MM-DD)")
	return cmd
}

func (f exportFlags) filter() (core.ExpenseFilter, error) {
	filter := core.ExpenseFilter{Category: f.category}
	var err error
	if f.start != "" {
		if filter.StartDate, err = core.ParseDay(f.start); err != nil {
			return filter, fmt.Errorf("invalid --start %q: %w", f.start, err)
		}
	}
	if f.end != "" {
		if filter.EndDate, err = core.ParseDay(f.end); err != nil {
			return filter, fmt.Errorf("invalid --end %q: %w", f.end, err)
		}
	}
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate.Time) {
		return filter, fmt.Errorf("--end %s is before --start %s", f.end, f.start)
	}
	return filter, nil
}

func (a *App) runExport(ctx context.Context, f exportFlags) error {
	format, err := export.ParseFormat(f.format)
	if err != nil {
		return err
	}
	filter, err := f.filter()
	if err != nil {
		return err
	}

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

	expenses, settings, err := tracker.ExportExpenses(ctx, filter)
	if err != nil {
		return fmt.Errorf("fetch expenses: %w", err)
	}
	path, err := export.WriteFile(f.dir, format, expenses, settings.Currency, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, pterm.Success.Sprintf("Exported %d expenses to %s", len(expenses), path))
	return nil
}
