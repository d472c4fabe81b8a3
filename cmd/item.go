package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/db"
	"github.com/benoctopus/worklog/internal/display"
	"github.com/benoctopus/worklog/internal/period"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage work items",
	Long: `Create, list, update, and delete work items.

Manually created items carry source "manual" and sync to Tempo as
standalone entries keyed by their own ID.

Examples:
  worklog item add --title "sprint planning" --hours 1
  worklog item list --from 2026-01-26
  worklog item edit <id> --hours 2.5
  worklog item map <id> PROJ-42
  worklog item rm <id>`,
}

func init() {
	rootCmd.AddCommand(itemCmd)
}

// ==================== item add ====================

var (
	itemAddTitle       string
	itemAddDescription string
	itemAddHours       float64
	itemAddDate        string
	itemAddProject     string
	itemAddIssueKey    string
)

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a manual work item",
	RunE:  runItemAdd,
}

func init() {
	itemCmd.AddCommand(itemAddCmd)
	itemAddCmd.Flags().StringVarP(&itemAddTitle, "title", "t", "", "Item title (required)")
	itemAddCmd.Flags().StringVar(&itemAddDescription, "description", "", "Longer description")
	itemAddCmd.Flags().Float64Var(&itemAddHours, "hours", 0, "Hours spent")
	itemAddCmd.Flags().StringVarP(&itemAddDate, "date", "d", "", "Date (YYYY-MM-DD, default today)")
	itemAddCmd.Flags().StringVarP(&itemAddProject, "project", "p", "", "Project path to attribute the item to")
	itemAddCmd.Flags().StringVar(&itemAddIssueKey, "issue", "", "Jira issue key")
	_ = itemAddCmd.MarkFlagRequired("title")
}

func runItemAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStderr()

	date := itemAddDate
	if date == "" {
		date = time.Now().Format(period.DateLayout)
	}

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	item, err := svc.CreateItem(ctx, backend.CreateItem{
		Title:        itemAddTitle,
		Description:  itemAddDescription,
		Hours:        itemAddHours,
		Date:         date,
		ProjectPath:  itemAddProject,
		JiraIssueKey: itemAddIssueKey,
	})
	if err != nil {
		return err
	}

	disp.Successf("created item %s (%s, %s)", item.ID, item.Title, item.Date)
	return nil
}

// ==================== item list ====================

var (
	itemListFrom   string
	itemListTo     string
	itemListSource string
	itemListJSON   bool
)

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work items",
	RunE:  runItemList,
}

func init() {
	itemCmd.AddCommand(itemListCmd)
	itemListCmd.Flags().StringVar(&itemListFrom, "from", "", "Window start date (YYYY-MM-DD)")
	itemListCmd.Flags().StringVar(&itemListTo, "to", "", "Window end date (YYYY-MM-DD)")
	itemListCmd.Flags().StringVarP(&itemListSource, "source", "s", "", "Filter to one source")
	itemListCmd.Flags().BoolVar(&itemListJSON, "json", false, "Output in JSON format")
}

func runItemList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStdout()

	from, to, err := resolveWindow(itemListFrom, itemListTo, period.UnitDay)
	if err != nil {
		return err
	}

	database, _, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	items, err := db.ListWorkItems(database, itemListSource, from, to)
	if err != nil {
		return eris.Wrap(err, "failed to list work items")
	}

	if itemListJSON {
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return eris.Wrap(err, "failed to marshal items to JSON")
		}
		fmt.Println(string(data))
		return nil
	}

	if len(items) == 0 {
		disp.Info("no work items in this window")
		return nil
	}

	fmt.Printf("%-36s %-12s %-6s %-12s %-10s %s\n", "ID", "DATE", "HOURS", "SOURCE", "ISSUE", "TITLE")
	fmt.Println(strings.Repeat("-", 110))
	for _, item := range items {
		synced := " "
		if item.SyncedToTempo {
			synced = "*"
		}
		fmt.Printf("%-36s %-12s %-6s %-12s %-10s %s%s\n",
			item.ID,
			item.Date,
			display.FormatHours(item.Hours),
			item.Source,
			item.JiraIssueKey,
			synced,
			item.Title,
		)
	}
	return nil
}

// ==================== item edit ====================

var (
	itemEditTitle       string
	itemEditDescription string
	itemEditHours       float64
	itemEditDate        string
	itemEditIssueKey    string
)

var itemEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update a work item",
	Long:  `Update a work item. Only the flags you pass change; other fields keep their values.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runItemEdit,
}

func init() {
	itemCmd.AddCommand(itemEditCmd)
	itemEditCmd.Flags().StringVarP(&itemEditTitle, "title", "t", "", "New title")
	itemEditCmd.Flags().StringVar(&itemEditDescription, "description", "", "New description")
	itemEditCmd.Flags().Float64Var(&itemEditHours, "hours", 0, "New hours")
	itemEditCmd.Flags().StringVarP(&itemEditDate, "date", "d", "", "New date (YYYY-MM-DD)")
	itemEditCmd.Flags().StringVar(&itemEditIssueKey, "issue", "", "New Jira issue key")
}

func runItemEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStderr()

	var update backend.UpdateItem
	if cmd.Flags().Changed("title") {
		update.Title = &itemEditTitle
	}
	if cmd.Flags().Changed("description") {
		update.Description = &itemEditDescription
	}
	if cmd.Flags().Changed("hours") {
		update.Hours = &itemEditHours
	}
	if cmd.Flags().Changed("date") {
		update.Date = &itemEditDate
	}
	if cmd.Flags().Changed("issue") {
		update.JiraIssueKey = &itemEditIssueKey
	}

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	item, err := svc.UpdateItem(ctx, args[0], update)
	if err != nil {
		return err
	}

	disp.Successf("updated item %s (%s)", item.ID, item.Title)
	return nil
}

// ==================== item map ====================

var itemMapCmd = &cobra.Command{
	Use:   "map <id> <issue-key>",
	Short: "Assign a Jira issue key to a work item",
	Args:  cobra.ExactArgs(2),
	RunE:  runItemMap,
}

func init() {
	itemCmd.AddCommand(itemMapCmd)
}

func runItemMap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStderr()

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	if err := svc.MapItemIssue(ctx, args[0], args[1]); err != nil {
		return err
	}
	disp.Successf("mapped item %s -> %s", args[0], args[1])
	return nil
}

// ==================== item rm ====================

var itemRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a work item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemRm,
}

func init() {
	itemCmd.AddCommand(itemRmCmd)
}

func runItemRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	disp := display.NewStderr()

	database, svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer database.Close() //nolint:errcheck

	if err := svc.DeleteItem(ctx, args[0]); err != nil {
		return err
	}
	disp.Successf("deleted item %s", args[0])
	return nil
}
