package cmd

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/config"
	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/tempo"
)

var tempoCmd = &cobra.Command{
	Use:   "tempo",
	Short: "Inspect the Tempo connection",
}

var tempoTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify Jira credentials against the Tempo API",
	Long: `Call the Jira "myself" endpoint with the configured URL and token and
report whether the credentials are accepted.`,
	RunE: runTempoTest,
}

var tempoWorklogsCmd = &cobra.Command{
	Use:   "worklogs",
	Short: "List remote Tempo worklogs for a date range",
	RunE:  runTempoWorklogs,
}

var (
	tempoWorklogsFrom string
	tempoWorklogsTo   string
)

func init() {
	rootCmd.AddCommand(tempoCmd)
	tempoCmd.AddCommand(tempoTestCmd)
	tempoCmd.AddCommand(tempoWorklogsCmd)
	tempoWorklogsCmd.Flags().StringVar(&tempoWorklogsFrom, "from", "", "Start date (YYYY-MM-DD, required)")
	tempoWorklogsCmd.Flags().StringVar(&tempoWorklogsTo, "to", "", "End date (YYYY-MM-DD, required)")
	_ = tempoWorklogsCmd.MarkFlagRequired("from")
	_ = tempoWorklogsCmd.MarkFlagRequired("to")
}

func tempoClient(cmd *cobra.Command) (*tempo.Client, error) {
	if err := ensureTempoToken(); err != nil {
		return nil, err
	}

	jiraURL, err := config.GetJiraURL()
	if err != nil {
		return nil, err
	}
	token, err := config.GetTempoToken()
	if err != nil {
		return nil, err
	}
	return tempo.New(cmd.Context(), jiraURL, token), nil
}

func runTempoTest(cmd *cobra.Command, args []string) error {
	disp := display.NewStderr()

	client, err := tempoClient(cmd)
	if err != nil {
		return err
	}

	ok, message := client.TestConnection(cmd.Context())
	if !ok {
		disp.Error(message)
		return eris.New("tempo connection test failed")
	}
	disp.Success(message)
	return nil
}

func runTempoWorklogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStdout()

	client, err := tempoClient(cmd)
	if err != nil {
		return err
	}

	user, err := client.Myself(ctx)
	if err != nil {
		return err
	}

	worklogs, err := client.ListWorklogs(ctx, tempoWorklogsFrom, tempoWorklogsTo, user.Identifier())
	if err != nil {
		return err
	}
	if len(worklogs) == 0 {
		disp.Info("no remote worklogs in this range")
		return nil
	}

	for _, wl := range worklogs {
		disp.Println(string(wl))
	}
	return nil
}
