package display

import (
	"fmt"
	"strings"

	"github.com/benoctopus/worklog/internal/grouping"
	"github.com/benoctopus/worklog/internal/hourly"
	"github.com/benoctopus/worklog/internal/models"
)

// FormatHours renders an hour count compactly: whole hours lose the
// fraction, everything else keeps one decimal.
func FormatHours(hours float64) string {
	if hours == float64(int64(hours)) {
		return fmt.Sprintf("%dh", int64(hours))
	}
	return fmt.Sprintf("%.1fh", hours)
}

// sourceTag returns a short tag for a work item source.
func sourceTag(source string) string {
	switch source {
	case models.SourceClaude:
		return "claude"
	case models.SourceGit:
		return "git"
	case models.SourceManual:
		return "manual"
	default:
		return source
	}
}

// RenderTimeline prints period-bucketed timeline groups.
func RenderTimeline(p Printer, groups []models.TimelineGroup, hasMore bool) {
	if len(groups) == 0 {
		p.Info("no activity in this window")
		return
	}

	for _, group := range groups {
		p.Printf("%s  %s\n", p.Bold(group.PeriodLabel), p.InfoText(FormatHours(group.TotalHours)))
		for _, session := range group.Sessions {
			title := session.Title
			if title == "" {
				title = session.Summary
			}
			p.Printf("  %s  %-7s %s\n",
				FormatHours(session.Hours),
				p.Faint("["+sourceTag(session.Source)+"]"),
				title,
			)
			for _, commit := range session.Commits {
				p.Printf("         %s %s\n", p.Faint(commit.ShortHash), commit.Message)
			}
		}
		p.Println()
	}

	if hasMore {
		p.Println(p.Faint("more groups available; rerun with --cursor or a larger --limit"))
	}
}

// RenderWorklogDays prints the day-by-day overview with per-row sync state.
func RenderWorklogDays(p Printer, days []models.WorklogDay, records map[string]models.WorklogSyncRecord) {
	if len(days) == 0 {
		p.Info("no activity in this window")
		return
	}

	for _, day := range days {
		p.Printf("%s (%s)\n", p.Bold(day.Date), day.Weekday)

		for _, project := range day.Projects {
			marker := " "
			if _, ok := records[project.ProjectPath+"\x00"+day.Date]; ok {
				marker = p.SuccessText("✓")
			}
			line := fmt.Sprintf("%s %s  %s", marker, FormatHours(project.TotalHours), project.ProjectName)
			if project.DailySummary != "" {
				line += "  " + p.Faint(project.DailySummary)
			}
			p.Println(" " + line)
			if project.HasHourlyData {
				p.Printf("        %s\n", p.Faint(fmt.Sprintf("%d commits, %d files", project.TotalCommits, project.TotalFiles)))
			}
		}

		for _, item := range day.ManualItems {
			marker := " "
			if item.SyncedToTempo {
				marker = p.SuccessText("✓")
			}
			p.Printf(" %s %s  %s %s\n", marker, FormatHours(item.Hours), item.Title, p.Faint("(manual)"))
		}
		p.Println()
	}
}

// RenderHourly prints a materialized hourly breakdown for one project.
func RenderHourly(p Printer, projectName string, result hourly.Result) {
	if len(result.Days) == 0 && len(result.ManualItems) == 0 {
		p.Info("no hourly activity recorded")
		return
	}

	p.Printf("%s  %s total, %d commits\n\n",
		p.Bold(projectName),
		FormatHours(result.TotalHours()),
		result.TotalCommits(),
	)

	for _, date := range result.Dates() {
		p.Println(p.Bold(date))
		for _, item := range result.Days[date] {
			p.Printf("  %s-%s  %-7s %s\n",
				item.HourStart, item.HourEnd,
				p.Faint("["+sourceTag(item.Source)+"]"),
				item.Summary,
			)
			for _, commit := range item.GitCommits {
				p.Printf("               %s %s\n", p.Faint(shortHash(commit.Hash)), commit.Message)
			}
			if len(item.FilesModified) > 0 {
				p.Printf("               %s\n", p.Faint(strings.Join(item.FilesModified, ", ")))
			}
		}
		p.Println()
	}

	for _, item := range result.ManualItems {
		p.Printf("  %s  %s %s\n", FormatHours(item.Hours), item.Title, p.Faint("(manual)"))
	}
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

// RenderSyncRows prints the exportable rows for a sync run before submission.
func RenderSyncRows(p Printer, rows []models.BatchSyncRow) {
	if len(rows) == 0 {
		p.Info("nothing to sync")
		return
	}

	for i, row := range rows {
		issue := row.IssueKey
		if issue == "" {
			issue = p.WarningText("(no issue key)")
		}
		name := row.ProjectName
		if row.IsManual {
			name += " " + p.Faint("(manual)")
		}
		date := ""
		if row.Date != "" {
			date = row.Date + "  "
		}
		p.Printf("%2d. %s%s  %s  %s\n", i+1, date, FormatHours(row.Hours), issue, name)
	}
}

// RenderSyncOutcomes prints per-row sync results and a summary line.
func RenderSyncOutcomes(p Printer, outcomes []models.SyncOutcome) {
	var synced, failed int
	for _, outcome := range outcomes {
		if outcome.Success {
			synced++
			p.Successf("%s %s (worklog %s)", outcome.Date, outcome.ProjectPath, outcome.TempoWorklogID)
		} else {
			failed++
			p.Errorf("%s %s: %s", outcome.Date, outcome.ProjectPath, outcome.Error)
		}
	}
	p.Println()
	if failed == 0 {
		p.Successf("synced %d worklog(s)", synced)
	} else {
		p.Warningf("synced %d worklog(s), %d failed", synced, failed)
	}
}

// RenderProjectReport prints the project > issue > log grouping.
func RenderProjectReport(p Printer, projects []grouping.ProjectGroup) {
	if len(projects) == 0 {
		p.Info("no work items in this window")
		return
	}

	for _, project := range projects {
		p.Printf("%s  %s\n", p.Bold(project.ProjectName), p.InfoText(FormatHours(project.TotalHours)))
		for _, issue := range project.Issues {
			key := issue.IssueKey
			if key == "" {
				key = p.Faint("(no issue)")
			}
			p.Printf("  %s  %s\n", key, FormatHours(issue.TotalHours))
			for _, log := range issue.Logs {
				p.Printf("    %s  %s  %s\n", log.Date, FormatHours(log.Hours), log.Title)
			}
		}
		p.Println()
	}
}

// RenderTaskReport prints the flat per-issue grouping.
func RenderTaskReport(p Printer, tasks []grouping.TaskGroup) {
	if len(tasks) == 0 {
		p.Info("no work items in this window")
		return
	}

	for _, task := range tasks {
		key := task.IssueKey
		if key == grouping.UnmappedKey {
			key = p.WarningText(key)
		}
		p.Printf("%s  %s\n", p.Bold(key), p.InfoText(FormatHours(task.TotalHours)))
		for _, log := range task.Logs {
			p.Printf("  %s  %s  %s\n", log.Date, FormatHours(log.Hours), log.Title)
		}
		p.Println()
	}
}

// RenderExportResult prints per-item export outcomes and a summary line.
func RenderExportResult(p Printer, result models.ExportResult) {
	for _, item := range result.Results {
		label := item.WorkItemTitle
		if label == "" {
			label = item.WorkItemID
		}
		switch item.Status {
		case "success":
			p.Successf("%s (HTTP %d)", label, item.HTTPStatus)
		case "dry_run":
			p.Infof("%s", label)
			if item.PayloadPreview != "" {
				p.Printf("    %s\n", p.Faint(item.PayloadPreview))
			}
		default:
			p.Errorf("%s: %s", label, item.ErrorMessage)
		}
	}
	p.Println()
	if result.DryRun {
		p.Infof("dry run: %d item(s) rendered, nothing sent", result.Total)
	} else if result.Failed == 0 {
		p.Successf("exported %d item(s)", result.Successful)
	} else {
		p.Warningf("exported %d item(s), %d failed", result.Successful, result.Failed)
	}
}
