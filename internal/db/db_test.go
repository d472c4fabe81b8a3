package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/benoctopus/worklog/internal/models"
)

// setupTestDB creates a file-backed SQLite database for testing
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testItem(id, date string) *models.WorkItem {
	return &models.WorkItem{
		ID:          id,
		Title:       "test item " + id,
		Hours:       1.5,
		Date:        date,
		Source:      models.SourceClaude,
		ProjectPath: "/home/user/projects/api",
		ProjectName: "api",
	}
}

func TestInitDB(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB() failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("Database ping failed: %v", err)
	}

	var foreignKeys int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if err != nil {
		t.Errorf("Failed to query foreign_keys pragma: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Foreign keys not enabled: got %d, want 1", foreignKeys)
	}

	tables := []string{
		"work_items", "worklog_sync_records", "project_issue_mappings",
		"hourly_breakdowns", "http_export_configs", "http_export_logs",
		"schema_migrations",
	}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Errorf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}
}

func TestInitDB_InvalidPath(t *testing.T) {
	db, err := InitDB("/nonexistent/directory/test.db")
	if err == nil {
		db.Close()
		t.Error("InitDB() should fail with invalid path")
	}
}

// ==================== Work Item Tests ====================

func TestCreateAndGetWorkItem(t *testing.T) {
	db := setupTestDB(t)

	item := testItem("w1", "2026-01-30")
	if err := CreateWorkItem(db, item); err != nil {
		t.Fatalf("CreateWorkItem() failed: %v", err)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	got, err := GetWorkItem(db, "w1")
	if err != nil {
		t.Fatalf("GetWorkItem() failed: %v", err)
	}
	if got.Title != item.Title || got.Hours != 1.5 || got.Date != "2026-01-30" {
		t.Errorf("GetWorkItem() = %+v", got)
	}
	if got.SyncedToTempo || got.SyncedAt != nil {
		t.Errorf("new item already marked synced: %+v", got)
	}
}

func TestCreateWorkItem_Validation(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateWorkItem(db, &models.WorkItem{Title: "no id"}); err == nil {
		t.Error("CreateWorkItem() should fail without an id")
	}

	item := testItem("w1", "2026-01-30")
	item.Hours = -1
	if err := CreateWorkItem(db, item); err == nil {
		t.Error("CreateWorkItem() should reject negative hours")
	}
}

func TestGetWorkItem_NotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := GetWorkItem(db, "missing"); err == nil {
		t.Error("GetWorkItem() should fail for missing id")
	}
}

func TestListWorkItems_Filters(t *testing.T) {
	db := setupTestDB(t)

	a := testItem("w1", "2026-01-28")
	b := testItem("w2", "2026-01-29")
	c := testItem("w3", "2026-01-30")
	c.Source = models.SourceManual
	for _, item := range []*models.WorkItem{a, b, c} {
		if err := CreateWorkItem(db, item); err != nil {
			t.Fatalf("CreateWorkItem() failed: %v", err)
		}
	}

	all, err := ListWorkItems(db, "", "", "")
	if err != nil {
		t.Fatalf("ListWorkItems() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d items, want 3", len(all))
	}
	if all[0].ID != "w3" {
		t.Errorf("items not ordered by date desc: first = %s", all[0].ID)
	}

	manual, err := ListWorkItems(db, models.SourceManual, "", "")
	if err != nil {
		t.Fatalf("ListWorkItems() failed: %v", err)
	}
	if len(manual) != 1 || manual[0].ID != "w3" {
		t.Errorf("source filter returned %+v", manual)
	}

	windowed, err := ListWorkItems(db, "", "2026-01-29", "2026-01-29")
	if err != nil {
		t.Fatalf("ListWorkItems() failed: %v", err)
	}
	if len(windowed) != 1 || windowed[0].ID != "w2" {
		t.Errorf("date window returned %+v", windowed)
	}
}

func TestUpdateWorkItem(t *testing.T) {
	db := setupTestDB(t)

	item := testItem("w1", "2026-01-30")
	if err := CreateWorkItem(db, item); err != nil {
		t.Fatalf("CreateWorkItem() failed: %v", err)
	}

	item.Title = "renamed"
	item.Hours = 3
	if err := UpdateWorkItem(db, item); err != nil {
		t.Fatalf("UpdateWorkItem() failed: %v", err)
	}

	got, err := GetWorkItem(db, "w1")
	if err != nil {
		t.Fatalf("GetWorkItem() failed: %v", err)
	}
	if got.Title != "renamed" || got.Hours != 3 {
		t.Errorf("update not persisted: %+v", got)
	}

	missing := testItem("missing", "2026-01-30")
	if err := UpdateWorkItem(db, missing); err == nil {
		t.Error("UpdateWorkItem() should fail for missing id")
	}
}

func TestDeleteWorkItem(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateWorkItem(db, testItem("w1", "2026-01-30")); err != nil {
		t.Fatalf("CreateWorkItem() failed: %v", err)
	}
	if err := DeleteWorkItem(db, "w1"); err != nil {
		t.Fatalf("DeleteWorkItem() failed: %v", err)
	}
	if _, err := GetWorkItem(db, "w1"); err == nil {
		t.Error("item still present after delete")
	}
	if err := DeleteWorkItem(db, "w1"); err == nil {
		t.Error("DeleteWorkItem() should fail for missing id")
	}
}

func TestSetWorkItemIssueKeyAndMarkSynced(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateWorkItem(db, testItem("w1", "2026-01-30")); err != nil {
		t.Fatalf("CreateWorkItem() failed: %v", err)
	}

	if err := SetWorkItemIssueKey(db, "w1", "PROJ-9"); err != nil {
		t.Fatalf("SetWorkItemIssueKey() failed: %v", err)
	}
	syncedAt := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)
	if err := MarkWorkItemSynced(db, "w1", syncedAt); err != nil {
		t.Fatalf("MarkWorkItemSynced() failed: %v", err)
	}

	got, err := GetWorkItem(db, "w1")
	if err != nil {
		t.Fatalf("GetWorkItem() failed: %v", err)
	}
	if got.JiraIssueKey != "PROJ-9" {
		t.Errorf("JiraIssueKey = %q", got.JiraIssueKey)
	}
	if !got.SyncedToTempo || got.SyncedAt == nil {
		t.Errorf("item not marked synced: %+v", got)
	}
}

// ==================== Sync Record Tests ====================

func TestUpsertSyncRecord(t *testing.T) {
	db := setupTestDB(t)

	rec := &models.WorklogSyncRecord{
		ID:           "s1",
		ProjectPath:  "/home/user/projects/api",
		Date:         "2026-01-30",
		JiraIssueKey: "PROJ-1",
		Hours:        2,
		SyncedAt:     "2026-01-30 10:00:00",
	}
	if err := UpsertSyncRecord(db, rec); err != nil {
		t.Fatalf("UpsertSyncRecord() failed: %v", err)
	}

	// Same (project_path, date) replaces instead of duplicating.
	rec2 := &models.WorklogSyncRecord{
		ID:           "s2",
		ProjectPath:  "/home/user/projects/api",
		Date:         "2026-01-30",
		JiraIssueKey: "PROJ-2",
		Hours:        4,
		SyncedAt:     "2026-01-30 11:00:00",
	}
	if err := UpsertSyncRecord(db, rec2); err != nil {
		t.Fatalf("UpsertSyncRecord() failed on conflict: %v", err)
	}

	records, err := GetSyncRecords(db, "2026-01-30", "2026-01-30")
	if err != nil {
		t.Fatalf("GetSyncRecords() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 per (project, date)", len(records))
	}
	if records[0].JiraIssueKey != "PROJ-2" || records[0].Hours != 4 {
		t.Errorf("upsert did not replace fields: %+v", records[0])
	}
}

func TestGetSyncRecords_Window(t *testing.T) {
	db := setupTestDB(t)

	for i, date := range []string{"2026-01-28", "2026-01-29", "2026-01-30"} {
		rec := &models.WorklogSyncRecord{
			ID:          string(rune('a' + i)),
			ProjectPath: "/p",
			Date:        date,
			SyncedAt:    date + " 09:00:00",
		}
		if err := UpsertSyncRecord(db, rec); err != nil {
			t.Fatalf("UpsertSyncRecord() failed: %v", err)
		}
	}

	records, err := GetSyncRecords(db, "2026-01-29", "2026-01-30")
	if err != nil {
		t.Fatalf("GetSyncRecords() failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records in window, want 2", len(records))
	}
}

// ==================== Mapping Tests ====================

func TestUpsertMapping(t *testing.T) {
	db := setupTestDB(t)

	if err := UpsertMapping(db, "/home/user/projects/api", "PROJ-1"); err != nil {
		t.Fatalf("UpsertMapping() failed: %v", err)
	}
	if err := UpsertMapping(db, "/home/user/projects/api", "PROJ-2"); err != nil {
		t.Fatalf("UpsertMapping() failed on conflict: %v", err)
	}

	mappings, err := GetAllMappings(db)
	if err != nil {
		t.Fatalf("GetAllMappings() failed: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("got %d mappings, want 1", len(mappings))
	}
	if mappings[0].JiraIssueKey != "PROJ-2" {
		t.Errorf("mapping not replaced: %+v", mappings[0])
	}
}

// ==================== Hourly Breakdown Tests ====================

func TestReplaceAndGetHourlyBreakdown(t *testing.T) {
	db := setupTestDB(t)

	items := []models.HourlyBreakdownItem{
		{
			HourStart:     "09:00",
			HourEnd:       "10:00",
			Source:        models.SourceClaude,
			Summary:       "api refactor",
			FilesModified: []string{"main.go", "db.go"},
			GitCommits:    []models.CommitRef{{Hash: "abc123", Message: "refactor"}},
		},
		{
			HourStart: "10:00",
			HourEnd:   "11:00",
			Source:    models.SourceGit,
			Summary:   "commits",
		},
	}
	if err := ReplaceHourlyBreakdown(db, "2026-01-30", "/p", items); err != nil {
		t.Fatalf("ReplaceHourlyBreakdown() failed: %v", err)
	}

	got, err := GetHourlyBreakdown(db, "2026-01-30", "/p")
	if err != nil {
		t.Fatalf("GetHourlyBreakdown() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	if got[0].HourStart != "09:00" || len(got[0].FilesModified) != 2 || len(got[0].GitCommits) != 1 {
		t.Errorf("first item = %+v", got[0])
	}

	// Replace wipes what was there before.
	if err := ReplaceHourlyBreakdown(db, "2026-01-30", "/p", items[:1]); err != nil {
		t.Fatalf("ReplaceHourlyBreakdown() failed: %v", err)
	}
	got, err = GetHourlyBreakdown(db, "2026-01-30", "/p")
	if err != nil {
		t.Fatalf("GetHourlyBreakdown() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d items after replace, want 1", len(got))
	}
}

func TestGetHourlyBreakdown_Empty(t *testing.T) {
	db := setupTestDB(t)

	got, err := GetHourlyBreakdown(db, "2026-01-30", "/p")
	if err != nil {
		t.Fatalf("GetHourlyBreakdown() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d items for untouched date, want 0", len(got))
	}
}

// ==================== Export Config Tests ====================

func testConfig(id string) *models.ExportConfig {
	return &models.ExportConfig{
		ID:              id,
		Name:            "endpoint " + id,
		URL:             "https://example.com/hook",
		Method:          "POST",
		AuthType:        "bearer",
		AuthToken:       "secret",
		PayloadTemplate: `{"summary": {{title}}}`,
		BatchWrapperKey: "items",
		Enabled:         true,
		TimeoutSeconds:  30,
	}
}

func TestExportConfigCRUD(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateExportConfig(db, testConfig("c1")); err != nil {
		t.Fatalf("CreateExportConfig() failed: %v", err)
	}

	got, err := GetExportConfig(db, "c1")
	if err != nil {
		t.Fatalf("GetExportConfig() failed: %v", err)
	}
	if got.AuthToken != "secret" {
		t.Errorf("GetExportConfig() should include the token, got %q", got.AuthToken)
	}

	list, err := ListExportConfigs(db)
	if err != nil {
		t.Fatalf("ListExportConfigs() failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d configs, want 1", len(list))
	}
	if list[0].AuthToken != "" {
		t.Error("ListExportConfigs() leaked the auth token")
	}

	got.Name = "renamed"
	got.AuthToken = ""
	if err := UpdateExportConfig(db, got); err != nil {
		t.Fatalf("UpdateExportConfig() failed: %v", err)
	}
	again, err := GetExportConfig(db, "c1")
	if err != nil {
		t.Fatalf("GetExportConfig() failed: %v", err)
	}
	if again.Name != "renamed" {
		t.Errorf("Name = %q", again.Name)
	}
	if again.AuthToken != "secret" {
		t.Error("empty AuthToken on update should keep the stored token")
	}

	if err := DeleteExportConfig(db, "c1"); err != nil {
		t.Fatalf("DeleteExportConfig() failed: %v", err)
	}
	if _, err := GetExportConfig(db, "c1"); err == nil {
		t.Error("config still present after delete")
	}
}

// ==================== Export History Tests ====================

func TestGetExportHistory(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateExportConfig(db, testConfig("c1")); err != nil {
		t.Fatalf("CreateExportConfig() failed: %v", err)
	}

	logs := []*models.ExportLog{
		{ID: "l1", ConfigID: "c1", WorkItemID: "w1", Status: "success"},
		{ID: "l2", ConfigID: "c1", WorkItemID: "w2", Status: "error", HTTPStatus: 500, ErrorMessage: "boom"},
		{ID: "l3", ConfigID: "c1", WorkItemID: "w1", Status: "success"},
	}
	for _, l := range logs {
		if err := InsertExportLog(db, l); err != nil {
			t.Fatalf("InsertExportLog() failed: %v", err)
		}
	}

	history, err := GetExportHistory(db, "c1", []string{"w1", "w2", "w3"})
	if err != nil {
		t.Fatalf("GetExportHistory() failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d history records, want 1 (only w1 exported successfully)", len(history))
	}
	if history[0].WorkItemID != "w1" || history[0].ExportedAt == "" {
		t.Errorf("history = %+v", history[0])
	}
}

func TestGetExportHistory_EmptyIDs(t *testing.T) {
	db := setupTestDB(t)

	history, err := GetExportHistory(db, "c1", nil)
	if err != nil {
		t.Fatalf("GetExportHistory() failed: %v", err)
	}
	if history != nil {
		t.Errorf("history = %v, want nil for empty id list", history)
	}
}

func TestExportLogsCascadeOnConfigDelete(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateExportConfig(db, testConfig("c1")); err != nil {
		t.Fatalf("CreateExportConfig() failed: %v", err)
	}
	if err := InsertExportLog(db, &models.ExportLog{ID: "l1", ConfigID: "c1", WorkItemID: "w1", Status: "success"}); err != nil {
		t.Fatalf("InsertExportLog() failed: %v", err)
	}
	if err := DeleteExportConfig(db, "c1"); err != nil {
		t.Fatalf("DeleteExportConfig() failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM http_export_logs").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("%d export logs survived the config delete", count)
	}
}
