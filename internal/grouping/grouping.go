// Package grouping holds pure re-projections of flat work item lists into
// the nested report views: by project, by Jira task, and by date.
package grouping

import (
	"sort"
	"strings"

	"github.com/benoctopus/worklog/internal/models"
)

// UnmappedKey labels task groups whose items carry no Jira issue key.
const UnmappedKey = "unmapped"

// fallbackProject labels items with no project name and no title hint.
const fallbackProject = "other"

// WorkLog is one item as it appears inside a grouped report.
type WorkLog struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Hours         float64 `json:"hours"`
	Date          string  `json:"date"`
	Source        string  `json:"source"`
	SyncedToTempo bool    `json:"synced_to_tempo"`
}

// IssueGroup collects the logs for one Jira issue within a project.
type IssueGroup struct {
	IssueKey   string    `json:"issue_key,omitempty"`
	TotalHours float64   `json:"total_hours"`
	Logs       []WorkLog `json:"logs"`
}

// ProjectGroup nests issue groups under one project.
type ProjectGroup struct {
	ProjectName string       `json:"project_name"`
	TotalHours  float64      `json:"total_hours"`
	Issues      []IssueGroup `json:"issues"`
}

// TaskGroup is one merged entry of the by-task view: all logs sharing an
// issue key, across every project.
type TaskGroup struct {
	IssueKey   string    `json:"issue_key"`
	TotalHours float64   `json:"total_hours"`
	Logs       []WorkLog `json:"logs"`
}

// DateGroup nests project groups under one calendar date.
type DateGroup struct {
	Date       string         `json:"date"`
	TotalHours float64        `json:"total_hours"`
	Projects   []ProjectGroup `json:"projects"`
}

// projectName derives a display name for an item. The stored project name
// wins; otherwise a leading "[name]" in the title is honored.
func projectName(item models.WorkItem) string {
	if item.ProjectName != "" {
		return item.ProjectName
	}
	if start := strings.IndexByte(item.Title, '['); start >= 0 {
		if end := strings.IndexByte(item.Title[start:], ']'); end > 1 {
			return item.Title[start+1 : start+end]
		}
	}
	return fallbackProject
}

func toLog(item models.WorkItem) WorkLog {
	return WorkLog{
		ID:            item.ID,
		Title:         item.Title,
		Description:   item.Description,
		Hours:         item.Hours,
		Date:          item.Date,
		Source:        item.Source,
		SyncedToTempo: item.SyncedToTempo,
	}
}

// ByProject groups a flat item list into project -> issue -> log, with
// issues and projects each sorted descending by total hours.
func ByProject(items []models.WorkItem) []ProjectGroup {
	type issueBucket struct {
		key  string
		logs []WorkLog
	}
	type projectBucket struct {
		name   string
		order  []string
		issues map[string]*issueBucket
	}

	byName := make(map[string]*projectBucket)
	var nameOrder []string
	for _, item := range items {
		name := projectName(item)
		pb, ok := byName[name]
		if !ok {
			pb = &projectBucket{name: name, issues: make(map[string]*issueBucket)}
			byName[name] = pb
			nameOrder = append(nameOrder, name)
		}
		ib, ok := pb.issues[item.JiraIssueKey]
		if !ok {
			ib = &issueBucket{key: item.JiraIssueKey}
			pb.issues[item.JiraIssueKey] = ib
			pb.order = append(pb.order, item.JiraIssueKey)
		}
		ib.logs = append(ib.logs, toLog(item))
	}

	groups := make([]ProjectGroup, 0, len(nameOrder))
	for _, name := range nameOrder {
		pb := byName[name]
		issues := make([]IssueGroup, 0, len(pb.order))
		var projectHours float64
		for _, key := range pb.order {
			ib := pb.issues[key]
			var hours float64
			for _, l := range ib.logs {
				hours += l.Hours
			}
			projectHours += hours
			issues = append(issues, IssueGroup{IssueKey: ib.key, TotalHours: hours, Logs: ib.logs})
		}
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].TotalHours > issues[j].TotalHours
		})
		groups = append(groups, ProjectGroup{ProjectName: name, TotalHours: projectHours, Issues: issues})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalHours > groups[j].TotalHours
	})
	return groups
}

// ByTask folds a by-project view across projects by issue key. Entries
// without an issue key share the "unmapped" bucket. Hours are summed and
// log lists concatenated when two entries share a key; the result is
// sorted descending by total hours.
func ByTask(projects []ProjectGroup) []TaskGroup {
	byKey := make(map[string]*TaskGroup)
	var order []string
	for _, project := range projects {
		for _, issue := range project.Issues {
			key := issue.IssueKey
			if key == "" {
				key = UnmappedKey
			}
			tg, ok := byKey[key]
			if !ok {
				tg = &TaskGroup{IssueKey: key}
				byKey[key] = tg
				order = append(order, key)
			}
			tg.TotalHours += issue.TotalHours
			tg.Logs = append(tg.Logs, issue.Logs...)
		}
	}

	tasks := make([]TaskGroup, 0, len(order))
	for _, key := range order {
		tasks = append(tasks, *byKey[key])
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].TotalHours > tasks[j].TotalHours
	})
	return tasks
}

// ByDate groups a flat item list into date -> project -> issue -> log,
// dates sorted descending.
func ByDate(items []models.WorkItem) []DateGroup {
	byDate := make(map[string][]models.WorkItem)
	var order []string
	for _, item := range items {
		if _, ok := byDate[item.Date]; !ok {
			order = append(order, item.Date)
		}
		byDate[item.Date] = append(byDate[item.Date], item)
	}

	groups := make([]DateGroup, 0, len(order))
	for _, date := range order {
		projects := ByProject(byDate[date])
		var hours float64
		for _, p := range projects {
			hours += p.TotalHours
		}
		groups = append(groups, DateGroup{Date: date, TotalHours: hours, Projects: projects})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})
	return groups
}
