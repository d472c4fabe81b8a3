package cmd

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "Work activity timeline, Tempo sync, and export tool",
	Long: `worklog turns auto-detected and manually entered work activity into
period-bucketed timelines, day-by-day worklog views, Tempo worklog
submissions, and generic HTTP exports.

Examples:
  worklog timeline --unit week          # Weekly activity timeline
  worklog days                          # Day-by-day worklog overview
  worklog hours /path/to/project        # Hourly drill-down for a project
  worklog sync --date 2026-01-28        # Push a day's worklogs to Tempo
  worklog report --group task           # Hours grouped by Jira issue
  worklog export run --config <id>      # Export items to an HTTP endpoint`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", eris.ToString(err, true))
		os.Exit(1)
	}
}
