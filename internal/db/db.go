// Package db is the sqlite persistence layer: work items, worklog sync
// records, issue mappings, hourly breakdowns, and HTTP export configs.
package db

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/models"
)

// InitDB opens the database at dbPath and applies pending migrations.
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open database: %s", dbPath)
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to enable foreign keys")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to ping database")
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to run migrations")
	}

	return db, nil
}

// ==================== Work Item CRUD Operations ====================

// CreateWorkItem inserts a work item. The caller supplies the ID; the
// timestamps are set here.
func CreateWorkItem(db *sql.DB, item *models.WorkItem) error {
	if item.ID == "" {
		return eris.New("work item has no id")
	}
	if item.Hours < 0 {
		return eris.Errorf("work item hours must be >= 0, got %v", item.Hours)
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := db.Exec(
		`INSERT INTO work_items
		 (id, title, description, hours, date, source, project_path, project_name, jira_issue_key, synced_to_tempo, synced_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Description, item.Hours, item.Date, item.Source,
		item.ProjectPath, item.ProjectName, item.JiraIssueKey,
		item.SyncedToTempo, item.SyncedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "failed to insert work item")
	}
	return nil
}

// GetWorkItem retrieves a work item by ID.
func GetWorkItem(db *sql.DB, id string) (*models.WorkItem, error) {
	row := db.QueryRow(
		`SELECT id, title, description, hours, date, source, project_path, project_name, jira_issue_key, synced_to_tempo, synced_at, created_at, updated_at
		 FROM work_items WHERE id = ?`, id,
	)
	item, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(err, "work item not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to query work item")
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row rowScanner) (*models.WorkItem, error) {
	item := &models.WorkItem{}
	var syncedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.Title, &item.Description, &item.Hours, &item.Date, &item.Source,
		&item.ProjectPath, &item.ProjectName, &item.JiraIssueKey,
		&item.SyncedToTempo, &syncedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if syncedAt.Valid {
		item.SyncedAt = &syncedAt.Time
	}
	return item, nil
}

// ListWorkItems retrieves work items filtered by source and inclusive date
// range; empty filter fields are ignored. Results are ordered by date
// descending, then creation time.
func ListWorkItems(db *sql.DB, source, startDate, endDate string) ([]models.WorkItem, error) {
	query := `SELECT id, title, description, hours, date, source, project_path, project_name, jira_issue_key, synced_to_tempo, synced_at, created_at, updated_at
	          FROM work_items WHERE 1=1`
	var args []any
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	if startDate != "" {
		query += " AND date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND date <= ?"
		args = append(args, endDate)
	}
	query += " ORDER BY date DESC, created_at ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query work items")
	}
	defer rows.Close()

	var items []models.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "failed to scan work item")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate work items")
	}
	return items, nil
}

// UpdateWorkItem writes the item's mutable fields back by ID.
func UpdateWorkItem(db *sql.DB, item *models.WorkItem) error {
	if item.Hours < 0 {
		return eris.Errorf("work item hours must be >= 0, got %v", item.Hours)
	}
	item.UpdatedAt = time.Now().UTC()

	result, err := db.Exec(
		`UPDATE work_items
		 SET title = ?, description = ?, hours = ?, date = ?, project_path = ?, project_name = ?, jira_issue_key = ?, synced_to_tempo = ?, synced_at = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Description, item.Hours, item.Date,
		item.ProjectPath, item.ProjectName, item.JiraIssueKey,
		item.SyncedToTempo, item.SyncedAt, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return eris.Wrap(err, "failed to update work item")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "failed to check update result")
	}
	if affected == 0 {
		return eris.Errorf("work item not found: %s", item.ID)
	}
	return nil
}

// DeleteWorkItem removes a work item by ID.
func DeleteWorkItem(db *sql.DB, id string) error {
	result, err := db.Exec("DELETE FROM work_items WHERE id = ?", id)
	if err != nil {
		return eris.Wrap(err, "failed to delete work item")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return eris.Errorf("work item not found: %s", id)
	}
	return nil
}

// SetWorkItemIssueKey maps a work item to a Jira issue.
func SetWorkItemIssueKey(db *sql.DB, id, issueKey string) error {
	result, err := db.Exec(
		"UPDATE work_items SET jira_issue_key = ?, updated_at = ? WHERE id = ?",
		issueKey, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrap(err, "failed to set issue key")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "failed to check update result")
	}
	if affected == 0 {
		return eris.Errorf("work item not found: %s", id)
	}
	return nil
}

// MarkWorkItemSynced flags a work item as pushed to Tempo.
func MarkWorkItemSynced(db *sql.DB, id string, syncedAt time.Time) error {
	_, err := db.Exec(
		"UPDATE work_items SET synced_to_tempo = 1, synced_at = ?, updated_at = ? WHERE id = ?",
		syncedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrap(err, "failed to mark work item synced")
	}
	return nil
}

// ==================== Worklog Sync Records ====================

// UpsertSyncRecord inserts a sync record, replacing any existing record for
// the same (project_path, date) pair.
func UpsertSyncRecord(db *sql.DB, record *models.WorklogSyncRecord) error {
	if record.ID == "" {
		return eris.New("sync record has no id")
	}

	_, err := db.Exec(
		`INSERT INTO worklog_sync_records (id, project_path, date, jira_issue_key, hours, description, tempo_worklog_id, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_path, date) DO UPDATE SET
		   jira_issue_key = excluded.jira_issue_key,
		   hours = excluded.hours,
		   description = excluded.description,
		   tempo_worklog_id = excluded.tempo_worklog_id,
		   synced_at = excluded.synced_at`,
		record.ID, record.ProjectPath, record.Date, record.JiraIssueKey,
		record.Hours, record.Description, record.TempoWorklogID, record.SyncedAt,
	)
	if err != nil {
		return eris.Wrap(err, "failed to upsert sync record")
	}
	return nil
}

// GetSyncRecords retrieves sync records within an inclusive date range.
func GetSyncRecords(db *sql.DB, startDate, endDate string) ([]models.WorklogSyncRecord, error) {
	rows, err := db.Query(
		`SELECT id, project_path, date, jira_issue_key, hours, description, tempo_worklog_id, synced_at
		 FROM worklog_sync_records WHERE date >= ? AND date <= ? ORDER BY date, project_path`,
		startDate, endDate,
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query sync records")
	}
	defer rows.Close()

	var records []models.WorklogSyncRecord
	for rows.Next() {
		var rec models.WorklogSyncRecord
		if err := rows.Scan(
			&rec.ID, &rec.ProjectPath, &rec.Date, &rec.JiraIssueKey,
			&rec.Hours, &rec.Description, &rec.TempoWorklogID, &rec.SyncedAt,
		); err != nil {
			return nil, eris.Wrap(err, "failed to scan sync record")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate sync records")
	}
	return records, nil
}

// ==================== Project Issue Mappings ====================

// UpsertMapping remembers the default issue key for a project path.
func UpsertMapping(db *sql.DB, projectPath, issueKey string) error {
	_, err := db.Exec(
		`INSERT INTO project_issue_mappings (project_path, jira_issue_key, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(project_path) DO UPDATE SET
		   jira_issue_key = excluded.jira_issue_key,
		   updated_at = CURRENT_TIMESTAMP`,
		projectPath, issueKey,
	)
	if err != nil {
		return eris.Wrap(err, "failed to upsert mapping")
	}
	return nil
}

// GetAllMappings retrieves every project-to-issue mapping.
func GetAllMappings(db *sql.DB) ([]models.ProjectIssueMapping, error) {
	rows, err := db.Query(
		"SELECT project_path, jira_issue_key, updated_at FROM project_issue_mappings ORDER BY project_path",
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query mappings")
	}
	defer rows.Close()

	var mappings []models.ProjectIssueMapping
	for rows.Next() {
		var m models.ProjectIssueMapping
		if err := rows.Scan(&m.ProjectPath, &m.JiraIssueKey, &m.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "failed to scan mapping")
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate mappings")
	}
	return mappings, nil
}

// ==================== Hourly Breakdowns ====================

// ReplaceHourlyBreakdown replaces the stored breakdown for one (date,
// project) pair in a single transaction.
func ReplaceHourlyBreakdown(db *sql.DB, date, projectPath string, items []models.HourlyBreakdownItem) error {
	tx, err := db.Begin()
	if err != nil {
		return eris.Wrap(err, "failed to begin transaction")
	}

	if _, err := tx.Exec(
		"DELETE FROM hourly_breakdowns WHERE date = ? AND project_path = ?", date, projectPath,
	); err != nil {
		//nolint:errcheck // Rollback in error path
		tx.Rollback()
		return eris.Wrap(err, "failed to clear hourly breakdown")
	}

	for _, item := range items {
		files, err := json.Marshal(item.FilesModified)
		if err != nil {
			//nolint:errcheck // Rollback in error path
			tx.Rollback()
			return eris.Wrap(err, "failed to encode files_modified")
		}
		commits, err := json.Marshal(item.GitCommits)
		if err != nil {
			//nolint:errcheck // Rollback in error path
			tx.Rollback()
			return eris.Wrap(err, "failed to encode git_commits")
		}
		if _, err := tx.Exec(
			`INSERT INTO hourly_breakdowns (date, project_path, hour_start, hour_end, source, summary, files_modified, git_commits)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			date, projectPath, item.HourStart, item.HourEnd, item.Source, item.Summary, string(files), string(commits),
		); err != nil {
			//nolint:errcheck // Rollback in error path
			tx.Rollback()
			return eris.Wrap(err, "failed to insert hourly breakdown item")
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "failed to commit hourly breakdown")
	}
	return nil
}

// GetHourlyBreakdown retrieves the stored breakdown for one (date, project)
// pair ordered by hour.
func GetHourlyBreakdown(db *sql.DB, date, projectPath string) ([]models.HourlyBreakdownItem, error) {
	rows, err := db.Query(
		`SELECT hour_start, hour_end, source, summary, files_modified, git_commits
		 FROM hourly_breakdowns WHERE date = ? AND project_path = ? ORDER BY hour_start, source`,
		date, projectPath,
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query hourly breakdown")
	}
	defer rows.Close()

	var items []models.HourlyBreakdownItem
	for rows.Next() {
		var item models.HourlyBreakdownItem
		var files, commits string
		if err := rows.Scan(&item.HourStart, &item.HourEnd, &item.Source, &item.Summary, &files, &commits); err != nil {
			return nil, eris.Wrap(err, "failed to scan hourly breakdown item")
		}
		if err := json.Unmarshal([]byte(files), &item.FilesModified); err != nil {
			return nil, eris.Wrap(err, "failed to decode files_modified")
		}
		if err := json.Unmarshal([]byte(commits), &item.GitCommits); err != nil {
			return nil, eris.Wrap(err, "failed to decode git_commits")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate hourly breakdown")
	}
	return items, nil
}

// ==================== HTTP Export Configs ====================

// CreateExportConfig inserts an export endpoint config.
func CreateExportConfig(db *sql.DB, config *models.ExportConfig) error {
	if config.ID == "" {
		return eris.New("export config has no id")
	}
	_, err := db.Exec(
		`INSERT INTO http_export_configs
		 (id, name, url, method, auth_type, auth_token, auth_header_name, payload_template, batch_mode, batch_wrapper_key, enabled, timeout_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		config.ID, config.Name, config.URL, config.Method, config.AuthType,
		config.AuthToken, config.AuthHeaderName, config.PayloadTemplate,
		config.BatchMode, config.BatchWrapperKey, config.Enabled, config.TimeoutSeconds,
	)
	if err != nil {
		return eris.Wrap(err, "failed to insert export config")
	}
	return nil
}

// UpdateExportConfig writes a config's fields back by ID. An empty
// AuthToken keeps the stored token.
func UpdateExportConfig(db *sql.DB, config *models.ExportConfig) error {
	query := `UPDATE http_export_configs
	          SET name = ?, url = ?, method = ?, auth_type = ?, auth_header_name = ?, payload_template = ?, batch_mode = ?, batch_wrapper_key = ?, enabled = ?, timeout_seconds = ?`
	args := []any{
		config.Name, config.URL, config.Method, config.AuthType, config.AuthHeaderName,
		config.PayloadTemplate, config.BatchMode, config.BatchWrapperKey,
		config.Enabled, config.TimeoutSeconds,
	}
	if config.AuthToken != "" {
		query += ", auth_token = ?"
		args = append(args, config.AuthToken)
	}
	query += " WHERE id = ?"
	args = append(args, config.ID)

	result, err := db.Exec(query, args...)
	if err != nil {
		return eris.Wrap(err, "failed to update export config")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "failed to check update result")
	}
	if affected == 0 {
		return eris.Errorf("export config not found: %s", config.ID)
	}
	return nil
}

// DeleteExportConfig removes a config and, via cascade, its export logs.
func DeleteExportConfig(db *sql.DB, id string) error {
	result, err := db.Exec("DELETE FROM http_export_configs WHERE id = ?", id)
	if err != nil {
		return eris.Wrap(err, "failed to delete export config")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return eris.Errorf("export config not found: %s", id)
	}
	return nil
}

// GetExportConfig retrieves one config including its auth token.
func GetExportConfig(db *sql.DB, id string) (*models.ExportConfig, error) {
	config := &models.ExportConfig{}
	err := db.QueryRow(
		`SELECT id, name, url, method, auth_type, auth_token, auth_header_name, payload_template, batch_mode, batch_wrapper_key, enabled, timeout_seconds
		 FROM http_export_configs WHERE id = ?`, id,
	).Scan(
		&config.ID, &config.Name, &config.URL, &config.Method, &config.AuthType,
		&config.AuthToken, &config.AuthHeaderName, &config.PayloadTemplate,
		&config.BatchMode, &config.BatchWrapperKey, &config.Enabled, &config.TimeoutSeconds,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(err, "export config not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to query export config")
	}
	return config, nil
}

// ListExportConfigs retrieves every config. Auth tokens are not loaded.
func ListExportConfigs(db *sql.DB) ([]models.ExportConfig, error) {
	rows, err := db.Query(
		`SELECT id, name, url, method, auth_type, auth_header_name, payload_template, batch_mode, batch_wrapper_key, enabled, timeout_seconds
		 FROM http_export_configs ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query export configs")
	}
	defer rows.Close()

	var configs []models.ExportConfig
	for rows.Next() {
		var c models.ExportConfig
		if err := rows.Scan(
			&c.ID, &c.Name, &c.URL, &c.Method, &c.AuthType,
			&c.AuthHeaderName, &c.PayloadTemplate,
			&c.BatchMode, &c.BatchWrapperKey, &c.Enabled, &c.TimeoutSeconds,
		); err != nil {
			return nil, eris.Wrap(err, "failed to scan export config")
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate export configs")
	}
	return configs, nil
}

// ==================== HTTP Export Logs ====================

// InsertExportLog records one per-item export outcome.
func InsertExportLog(db *sql.DB, log *models.ExportLog) error {
	if log.ID == "" {
		return eris.New("export log has no id")
	}
	_, err := db.Exec(
		`INSERT INTO http_export_logs (id, config_id, work_item_id, status, http_status, error_message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.ID, log.ConfigID, log.WorkItemID, log.Status, log.HTTPStatus, log.ErrorMessage,
	)
	if err != nil {
		return eris.Wrap(err, "failed to insert export log")
	}
	return nil
}

// GetExportHistory returns, per item, the latest successful export through
// the config. Items never successfully exported are absent.
func GetExportHistory(db *sql.DB, configID string, itemIDs []string) ([]models.ExportHistoryRecord, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, configID)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := db.Query(
		`SELECT work_item_id, MAX(created_at)
		 FROM http_export_logs
		 WHERE config_id = ? AND status = 'success' AND work_item_id IN (`+placeholders+`)
		 GROUP BY work_item_id`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query export history")
	}
	defer rows.Close()

	var records []models.ExportHistoryRecord
	for rows.Next() {
		var rec models.ExportHistoryRecord
		if err := rows.Scan(&rec.WorkItemID, &rec.ExportedAt); err != nil {
			return nil, eris.Wrap(err, "failed to scan export history record")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate export history")
	}
	return records, nil
}
