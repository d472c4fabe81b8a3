package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/config"
	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/period"
	"github.com/benoctopus/worklog/internal/timeline"
)

var (
	timelineUnit    string
	timelineProject string
	timelineSources []string
	timelineFrom    string
	timelineTo      string
	timelineLimit   int
	timelinePages   int
	timelineJSON    bool
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show period-bucketed activity timeline",
	Long: `Display activity grouped into calendar periods, newest first.

Each group buckets sessions from all sources (claude_code, local_git,
manual) into one day, week, month, quarter, or year. Additional pages
are fetched with --pages.

Examples:
  worklog timeline                          # Daily groups, last 30 days
  worklog timeline --unit week              # Weekly groups
  worklog timeline --project api            # Only one project
  worklog timeline --source manual          # Only manual items
  worklog timeline --from 2026-01-01 --to 2026-01-31
  worklog timeline --pages 3                # Fetch up to three pages`,
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().StringVarP(&timelineUnit, "unit", "u", period.UnitDay, "Time unit: day, week, month, quarter, year")
	timelineCmd.Flags().StringVarP(&timelineProject, "project", "p", "", "Filter to one project name")
	timelineCmd.Flags().StringSliceVarP(&timelineSources, "source", "s", nil, "Filter to sources (repeatable)")
	timelineCmd.Flags().StringVar(&timelineFrom, "from", "", "Window start date (YYYY-MM-DD)")
	timelineCmd.Flags().StringVar(&timelineTo, "to", "", "Window end date (YYYY-MM-DD)")
	timelineCmd.Flags().IntVarP(&timelineLimit, "limit", "n", 0, "Groups per page (default from config)")
	timelineCmd.Flags().IntVar(&timelinePages, "pages", 1, "Number of pages to fetch")
	timelineCmd.Flags().BoolVar(&timelineJSON, "json", false, "Output in JSON format")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStdout()

	if !period.ValidUnit(timelineUnit) {
		return eris.Errorf("invalid time unit: %s", timelineUnit)
	}

	from, to, err := resolveWindow(timelineFrom, timelineTo, timelineUnit)
	if err != nil {
		return err
	}

	pageSize := timelineLimit
	if pageSize <= 0 {
		pageSize, err = config.GetPageSize()
		if err != nil {
			return err
		}
	}

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	agg := timeline.New(svc, timelineProject,
		timeline.WithPageSize(pageSize),
		timeline.WithWindow(from, to),
		timeline.WithLogger(newLogger()),
	)
	if err := agg.SetUnit(ctx, timelineUnit); err != nil {
		return err
	}
	if len(timelineSources) > 0 {
		if err := agg.SetSources(ctx, timelineSources); err != nil {
			return err
		}
	}
	if agg.State() == timeline.StateEmpty {
		if err := agg.LoadInitial(ctx); err != nil {
			return err
		}
	}

	for page := 1; page < timelinePages && agg.HasMore(); page++ {
		if err := agg.LoadMore(ctx); err != nil {
			return err
		}
	}

	if timelineJSON {
		data, err := json.MarshalIndent(agg.Groups(), "", "  ")
		if err != nil {
			return eris.Wrap(err, "failed to marshal timeline to JSON")
		}
		fmt.Println(string(data))
		return nil
	}

	display.RenderTimeline(disp, agg.Groups(), agg.HasMore())
	return nil
}
