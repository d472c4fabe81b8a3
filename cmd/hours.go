package cmd

import (
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/hourly"
	"github.com/benoctopus/worklog/internal/models"
	"github.com/benoctopus/worklog/internal/period"
)

var (
	hoursFrom string
	hoursTo   string
	hoursDate string
)

var hoursCmd = &cobra.Command{
	Use:   "hours <project-path>",
	Short: "Show the hourly breakdown for one project",
	Long: `Display hour-by-hour activity for a project across a date range,
with per-hour summaries, modified files, and git commits. Manual projects
have no hour-level granularity; their items are listed instead.

Examples:
  worklog hours /home/dev/api                  # Last 30 days
  worklog hours /home/dev/api --date 2026-01-28
  worklog hours /home/dev/api --from 2026-01-26 --to 2026-02-01`,
	Args: cobra.ExactArgs(1),
	RunE: runHours,
}

func init() {
	rootCmd.AddCommand(hoursCmd)
	hoursCmd.Flags().StringVar(&hoursFrom, "from", "", "Window start date (YYYY-MM-DD)")
	hoursCmd.Flags().StringVar(&hoursTo, "to", "", "Window end date (YYYY-MM-DD)")
	hoursCmd.Flags().StringVarP(&hoursDate, "date", "d", "", "Single date shortcut (YYYY-MM-DD)")
}

func runHours(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStdout()
	projectPath := args[0]

	from, to := hoursFrom, hoursTo
	if hoursDate != "" {
		from, to = hoursDate, hoursDate
	}
	from, to, err := resolveWindow(from, to, period.UnitDay)
	if err != nil {
		return err
	}

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	result, err := hourly.New(svc, newLogger()).Materialize(ctx, from, to, projectPath)
	if err != nil {
		return err
	}

	display.RenderHourly(disp, projectLabel(projectPath), result)
	return nil
}

// projectLabel derives a display name for a project path argument.
func projectLabel(projectPath string) string {
	if models.IsManualKey(projectPath) {
		return "manual"
	}
	return path.Base(strings.TrimRight(projectPath, "/"))
}
