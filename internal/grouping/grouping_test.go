package grouping

import (
	"testing"

	"github.com/benoctopus/worklog/internal/models"
)

func sampleItems() []models.WorkItem {
	return []models.WorkItem{
		{ID: "1", Title: "api refactor", Hours: 3, Date: "2026-01-28", Source: models.SourceClaude, ProjectName: "api", JiraIssueKey: "PROJ-1"},
		{ID: "2", Title: "api fixes", Hours: 1, Date: "2026-01-29", Source: models.SourceClaude, ProjectName: "api", JiraIssueKey: "PROJ-1"},
		{ID: "3", Title: "api docs", Hours: 2, Date: "2026-01-29", Source: models.SourceManual, ProjectName: "api"},
		{ID: "4", Title: "web login", Hours: 4, Date: "2026-01-28", Source: models.SourceGit, ProjectName: "web", JiraIssueKey: "PROJ-2"},
		{ID: "5", Title: "web shared fix", Hours: 2, Date: "2026-01-29", Source: models.SourceGit, ProjectName: "web", JiraIssueKey: "PROJ-1"},
	}
}

func TestByProjectNesting(t *testing.T) {
	groups := ByProject(sampleItems())

	if len(groups) != 2 {
		t.Fatalf("got %d project groups, want 2", len(groups))
	}
	// api has 6 hours, web has 6 hours; stable sort keeps encounter order.
	if groups[0].ProjectName != "api" || groups[1].ProjectName != "web" {
		t.Fatalf("project order = %s, %s", groups[0].ProjectName, groups[1].ProjectName)
	}
	if groups[0].TotalHours != 6 {
		t.Errorf("api TotalHours = %v, want 6", groups[0].TotalHours)
	}

	api := groups[0]
	if len(api.Issues) != 2 {
		t.Fatalf("api has %d issue groups, want 2", len(api.Issues))
	}
	if api.Issues[0].IssueKey != "PROJ-1" || api.Issues[0].TotalHours != 4 {
		t.Errorf("api top issue = %+v, want PROJ-1 with 4h", api.Issues[0])
	}
	if api.Issues[1].IssueKey != "" || api.Issues[1].TotalHours != 2 {
		t.Errorf("api unkeyed issue = %+v, want empty key with 2h", api.Issues[1])
	}
	if len(api.Issues[0].Logs) != 2 {
		t.Errorf("PROJ-1 under api has %d logs, want 2", len(api.Issues[0].Logs))
	}
}

func TestByProjectSortsByHoursDesc(t *testing.T) {
	items := []models.WorkItem{
		{ID: "1", Hours: 1, ProjectName: "small"},
		{ID: "2", Hours: 5, ProjectName: "big"},
	}
	groups := ByProject(items)
	if groups[0].ProjectName != "big" {
		t.Errorf("groups[0] = %s, want big first", groups[0].ProjectName)
	}
}

func TestByProjectTitleFallback(t *testing.T) {
	items := []models.WorkItem{
		{ID: "1", Title: "[tooling] fix release script", Hours: 1},
		{ID: "2", Title: "untagged work", Hours: 1},
	}
	groups := ByProject(items)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	names := map[string]bool{}
	for _, g := range groups {
		names[g.ProjectName] = true
	}
	if !names["tooling"] || !names["other"] {
		t.Errorf("project names = %v, want tooling and other", names)
	}
}

func TestByTaskMergesAcrossProjects(t *testing.T) {
	tasks := ByTask(ByProject(sampleItems()))

	if len(tasks) != 3 {
		t.Fatalf("got %d task groups, want 3", len(tasks))
	}
	// PROJ-1 appears under both api (4h, 2 logs) and web (2h, 1 log).
	if tasks[0].IssueKey != "PROJ-1" {
		t.Fatalf("tasks[0] = %s, want PROJ-1 (6h) first", tasks[0].IssueKey)
	}
	if tasks[0].TotalHours != 6 {
		t.Errorf("PROJ-1 TotalHours = %v, want 4+2=6", tasks[0].TotalHours)
	}
	if len(tasks[0].Logs) != 3 {
		t.Errorf("PROJ-1 has %d logs, want 2+1=3", len(tasks[0].Logs))
	}
}

func TestByTaskUnmappedBucket(t *testing.T) {
	tasks := ByTask(ByProject(sampleItems()))

	var unmapped *TaskGroup
	for i := range tasks {
		if tasks[i].IssueKey == UnmappedKey {
			unmapped = &tasks[i]
		}
	}
	if unmapped == nil {
		t.Fatal("no unmapped bucket for items without an issue key")
	}
	if unmapped.TotalHours != 2 || len(unmapped.Logs) != 1 {
		t.Errorf("unmapped = %vh with %d logs, want 2h with 1 log", unmapped.TotalHours, len(unmapped.Logs))
	}
}

func TestByTaskIdempotentTotals(t *testing.T) {
	byProject := ByProject(sampleItems())
	once := ByTask(byProject)
	twice := ByTask(byProject)

	if len(once) != len(twice) {
		t.Fatalf("repeat run changed group count: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].IssueKey != twice[i].IssueKey || once[i].TotalHours != twice[i].TotalHours || len(once[i].Logs) != len(twice[i].Logs) {
			t.Errorf("group %d differs between runs: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestByDate(t *testing.T) {
	groups := ByDate(sampleItems())

	if len(groups) != 2 {
		t.Fatalf("got %d date groups, want 2", len(groups))
	}
	if groups[0].Date != "2026-01-29" || groups[1].Date != "2026-01-28" {
		t.Fatalf("date order = %s, %s, want descending", groups[0].Date, groups[1].Date)
	}
	if groups[0].TotalHours != 5 {
		t.Errorf("2026-01-29 TotalHours = %v, want 1+2+2=5", groups[0].TotalHours)
	}
	if groups[1].TotalHours != 7 {
		t.Errorf("2026-01-28 TotalHours = %v, want 3+4=7", groups[1].TotalHours)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := ByProject(nil); len(got) != 0 {
		t.Errorf("ByProject(nil) = %v, want empty", got)
	}
	if got := ByTask(nil); len(got) != 0 {
		t.Errorf("ByTask(nil) = %v, want empty", got)
	}
	if got := ByDate(nil); len(got) != 0 {
		t.Errorf("ByDate(nil) = %v, want empty", got)
	}
}
