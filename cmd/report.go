package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/db"
	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/grouping"
	"github.com/benoctopus/worklog/internal/period"
)

var (
	reportGroup  string
	reportFrom   string
	reportTo     string
	reportSource string
	reportJSON   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show hours grouped by project, task, or date",
	Long: `Aggregate work items into a report. Grouping modes:

  project   project > issue > log, hours descending (default)
  task      flat per-issue totals; items without a key fall into "unmapped"
  date      per-day project groups, newest first

Examples:
  worklog report                              # By project, last 30 days
  worklog report --group task
  worklog report --group date --from 2026-01-01 --to 2026-01-31
  worklog report --source manual --json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportGroup, "group", "g", "project", "Grouping mode: project, task, date")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Window start date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Window end date (YYYY-MM-DD)")
	reportCmd.Flags().StringVarP(&reportSource, "source", "s", "", "Filter to one source")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output in JSON format")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStdout()

	from, to, err := resolveWindow(reportFrom, reportTo, period.UnitDay)
	if err != nil {
		return err
	}

	database, _, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	items, err := db.ListWorkItems(database, reportSource, from, to)
	if err != nil {
		return eris.Wrap(err, "failed to list work items")
	}

	emit := func(v any) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return eris.Wrap(err, "failed to marshal report to JSON")
		}
		fmt.Println(string(data))
		return nil
	}

	switch reportGroup {
	case "project":
		projects := grouping.ByProject(items)
		if reportJSON {
			return emit(projects)
		}
		display.RenderProjectReport(disp, projects)
	case "task":
		tasks := grouping.ByTask(grouping.ByProject(items))
		if reportJSON {
			return emit(tasks)
		}
		display.RenderTaskReport(disp, tasks)
	case "date":
		dates := grouping.ByDate(items)
		if reportJSON {
			return emit(dates)
		}
		for _, day := range dates {
			disp.Println(disp.Bold(day.Date))
			display.RenderProjectReport(disp, day.Projects)
		}
	default:
		return eris.Errorf("invalid --group mode: %s", reportGroup)
	}
	return nil
}
