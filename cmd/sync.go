package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/config"
	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/models"
	"github.com/benoctopus/worklog/internal/period"
	"github.com/benoctopus/worklog/internal/reconcile"
	"github.com/benoctopus/worklog/internal/tty"
)

var (
	syncDate     string
	syncWeekOf   string
	syncYes      bool
	syncMappings []string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push unsynced worklogs to Tempo",
	Long: `Compute the exportable rows for a day or week, show them, and submit
them to Tempo. Rows already recorded as synced are skipped; each
(project, date) pair is pushed at most once.

Rows without a Jira issue key fail individually without aborting the
batch. Save a default key for a project with --map.

Examples:
  worklog sync                                 # Today's rows
  worklog sync --date 2026-01-28
  worklog sync --week-of 2026-01-28            # Whole Monday-Sunday week
  worklog sync --map /home/dev/api=PROJ-1      # Remember a default issue key
  worklog sync --yes                           # Skip the confirmation prompt`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVarP(&syncDate, "date", "d", "", "Day to sync (YYYY-MM-DD, default today)")
	syncCmd.Flags().StringVar(&syncWeekOf, "week-of", "", "Sync the whole week containing this date")
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "Submit without confirmation")
	syncCmd.Flags().StringArrayVar(&syncMappings, "map", nil, "Save a project issue mapping (path=ISSUE-KEY)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStderr()

	if syncDate != "" && syncWeekOf != "" {
		return eris.New("--date and --week-of are mutually exclusive")
	}

	if err := ensureTempoToken(); err != nil {
		return err
	}

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	for _, mapping := range syncMappings {
		projectPath, issueKey, ok := strings.Cut(mapping, "=")
		if !ok || projectPath == "" || issueKey == "" {
			return eris.Errorf("invalid --map value: %s (want path=ISSUE-KEY)", mapping)
		}
		if err := svc.SaveMapping(ctx, projectPath, issueKey); err != nil {
			return err
		}
		disp.Successf("mapped %s -> %s", projectPath, issueKey)
	}

	rec := reconcile.New(svc, newLogger())

	if syncWeekOf != "" {
		anchor, err := period.ParseDate(syncWeekOf)
		if err != nil {
			return err
		}
		start, end := period.Bounds(anchor, period.UnitWeek)
		rows, err := rec.RowsForWeek(ctx, start.Format(period.DateLayout), end.Format(period.DateLayout))
		if err != nil {
			return err
		}
		return submitRows(cmd, disp, rec, rows, "", true)
	}

	date := syncDate
	if date == "" {
		date = time.Now().Format(period.DateLayout)
	} else if _, err := period.ParseDate(date); err != nil {
		return err
	}

	rows, err := rec.RowsForDay(ctx, date)
	if err != nil {
		return err
	}
	return submitRows(cmd, disp, rec, rows, date, false)
}

func submitRows(cmd *cobra.Command, disp display.Printer, rec *reconcile.Reconciler, rows []models.BatchSyncRow, date string, week bool) error {
	ctx := cmd.Context()

	if len(rows) == 0 {
		disp.Info("nothing to sync")
		return nil
	}

	display.RenderSyncRows(disp, rows)

	if err := reconcile.ValidateRows(rows); err != nil {
		disp.Warning(err.Error())
	}

	if !syncYes {
		if !tty.IsInteractive() {
			return eris.New("refusing to sync without confirmation: re-run with --yes")
		}
		ok, err := tty.Confirm(os.Stdin, os.Stderr, "submit these worklogs to Tempo?")
		if err != nil {
			return err
		}
		if !ok {
			disp.Info("sync cancelled")
			return nil
		}
	}

	var (
		result *reconcile.Result
		err    error
	)
	if week {
		result, err = rec.SyncWeek(ctx, rows)
	} else {
		result, err = rec.SyncBatch(ctx, rows, date)
	}
	if err != nil {
		return err
	}

	display.RenderSyncOutcomes(disp, result.Outcomes)
	if result.Failed > 0 {
		return eris.Errorf("%d of %d worklog(s) failed to sync", result.Failed, len(result.Outcomes))
	}
	return nil
}

// ensureTempoToken prompts for a token when the Jira URL is configured but
// no token is available, so a sync never fails halfway through.
func ensureTempoToken() error {
	jiraURL, err := config.GetJiraURL()
	if err != nil {
		return err
	}
	if jiraURL == "" {
		return eris.New("no Jira URL configured: set WORKLOG_JIRA_URL or jira_url in the config file")
	}

	token, err := config.GetTempoToken()
	if err != nil {
		return err
	}
	if token != "" {
		return nil
	}

	if !tty.IsInteractive() {
		return eris.New("no Tempo token configured: set WORKLOG_TEMPO_TOKEN or tempo_token in the config file")
	}

	secret, err := tty.ReadSecret("Tempo API token: ")
	if err != nil {
		return err
	}
	if secret == "" {
		return eris.New("empty Tempo token")
	}
	// Hand the token to the service via the highest-priority config tier.
	return os.Setenv("WORKLOG_TEMPO_TOKEN", secret)
}
