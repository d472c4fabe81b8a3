package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/config"
	"github.com/benoctopus/worklog/internal/display"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Print the configuration as resolved through the hierarchy:
environment variables, then the config file, then built-in defaults.

Settings:
  WORKLOG_DB           / db_path
  WORKLOG_JIRA_URL     / jira_url
  WORKLOG_TEMPO_TOKEN  / tempo_token
  WORKLOG_PAGE_SIZE    / page_size
  WORKLOG_CACHE_TTL    / cache_ttl_seconds`,
	RunE: runConfig,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	token := "(not set)"
	if cfg.TempoToken != "" {
		token = "(set)"
	}
	jiraURL := cfg.JiraURL
	if jiraURL == "" {
		jiraURL = "(not set)"
	}

	fmt.Printf("config file:  %s\n", configPath)
	fmt.Printf("database:     %s\n", cfg.DBPath)
	fmt.Printf("jira url:     %s\n", jiraURL)
	fmt.Printf("tempo token:  %s\n", token)
	fmt.Printf("page size:    %d\n", cfg.PageSize)
	fmt.Printf("cache ttl:    %ds\n", cfg.CacheTTLSeconds)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	disp := display.NewStderr()

	configPath, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	if err := config.ValidateConfigFile(configPath); err != nil {
		return err
	}
	disp.Successf("%s is valid", configPath)
	return nil
}
