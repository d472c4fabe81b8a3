package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/models"
	"github.com/benoctopus/worklog/internal/period"
)

var (
	daysFrom string
	daysTo   string
	daysJSON bool
)

var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "Show the day-by-day worklog overview",
	Long: `Display per-day activity: auto-detected project hours with commit and
file counts, plus manual items. Rows already pushed to Tempo are marked.

Examples:
  worklog days                               # Last 30 days with activity
  worklog days --from 2026-01-26 --to 2026-02-01
  worklog days --json`,
	RunE: runDays,
}

func init() {
	rootCmd.AddCommand(daysCmd)
	daysCmd.Flags().StringVar(&daysFrom, "from", "", "Window start date (YYYY-MM-DD)")
	daysCmd.Flags().StringVar(&daysTo, "to", "", "Window end date (YYYY-MM-DD)")
	daysCmd.Flags().BoolVar(&daysJSON, "json", false, "Output in JSON format")
}

func runDays(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStdout()

	from, to, err := resolveWindow(daysFrom, daysTo, period.UnitDay)
	if err != nil {
		return err
	}

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	days, err := svc.WorklogOverview(ctx, from, to)
	if err != nil {
		return eris.Wrap(err, "failed to fetch worklog overview")
	}

	if daysJSON {
		data, err := json.MarshalIndent(days, "", "  ")
		if err != nil {
			return eris.Wrap(err, "failed to marshal overview to JSON")
		}
		fmt.Println(string(data))
		return nil
	}

	records, err := svc.GetSyncRecords(ctx, from, to)
	if err != nil {
		return eris.Wrap(err, "failed to fetch sync records")
	}
	byKey := make(map[string]models.WorklogSyncRecord, len(records))
	for _, rec := range records {
		byKey[rec.ProjectPath+"\x00"+rec.Date] = rec
	}

	display.RenderWorklogDays(disp, days, byKey)
	return nil
}
