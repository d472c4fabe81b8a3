package models

import "time"

// Source names for work items. Auto-detected items carry the integration
// name that produced them; user-entered items are always SourceManual.
const (
	SourceManual = "manual"
	SourceClaude = "claude_code"
	SourceGit    = "local_git"
)

// WorkItem is a single trackable unit of work, auto-detected or manual.
type WorkItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Hours         float64    `json:"hours"` // always >= 0
	Date          string     `json:"date"`  // calendar date, "2006-01-02"
	Source        string     `json:"source"`
	ProjectPath   string     `json:"project_path,omitempty"`
	ProjectName   string     `json:"project_name,omitempty"`
	JiraIssueKey  string     `json:"jira_issue_key,omitempty"`
	SyncedToTempo bool       `json:"synced_to_tempo"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TimelineCommit is one git commit attached to a timeline session.
type TimelineCommit struct {
	Hash         string `json:"hash"`
	ShortHash    string `json:"short_hash"`
	Message      string `json:"message"`
	Author       string `json:"author"`
	Time         string `json:"time"`
	FilesChanged int    `json:"files_changed"`
	Insertions   int    `json:"insertions"`
	Deletions    int    `json:"deletions"`
}

// TimelineSession is one contiguous unit of activity within a period bucket.
// A session with zero commits is valid.
type TimelineSession struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	Title     string           `json:"title"`
	StartTime string           `json:"start_time"`
	EndTime   string           `json:"end_time"`
	Hours     float64          `json:"hours"`
	Summary   string           `json:"summary,omitempty"`
	Commits   []TimelineCommit `json:"commits"`
}

// TimelineGroup is a display bucket of sessions for one period.
// TotalHours is the sum of member session hours at assembly time; it is not
// recomputed after item edits, a fresh fetch reflects them.
type TimelineGroup struct {
	PeriodStart string            `json:"period_start"` // "2006-01-02"
	PeriodEnd   string            `json:"period_end"`
	PeriodLabel string            `json:"period_label"`
	TotalHours  float64           `json:"total_hours"`
	Sessions    []TimelineSession `json:"sessions"`
}

// CommitRef is a minimal commit reference inside an hourly breakdown item.
type CommitRef struct {
	Hash      string `json:"hash"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HourlyBreakdownItem is one source's activity within a single clock hour
// for one project and day. The [HourStart, HourEnd) interval is half-open.
type HourlyBreakdownItem struct {
	HourStart     string      `json:"hour_start"` // "15:04"
	HourEnd       string      `json:"hour_end"`
	Source        string      `json:"source"`
	Summary       string      `json:"summary"`
	FilesModified []string    `json:"files_modified"`
	GitCommits    []CommitRef `json:"git_commits"`
}

// WorklogSyncRecord is persisted proof that a (target key, date) pair has
// been pushed to Tempo. At most one record exists per key per date.
type WorklogSyncRecord struct {
	ID             string  `json:"id"`
	ProjectPath    string  `json:"project_path"` // project path or "manual:<id>"
	Date           string  `json:"date"`
	JiraIssueKey   string  `json:"jira_issue_key"`
	Hours          float64 `json:"hours"`
	Description    string  `json:"description,omitempty"`
	TempoWorklogID string  `json:"tempo_worklog_id,omitempty"`
	SyncedAt       string  `json:"synced_at"`
}

// ProjectIssueMapping remembers the default Jira issue key for a project.
type ProjectIssueMapping struct {
	ProjectPath  string `json:"project_path"`
	JiraIssueKey string `json:"jira_issue_key"`
	UpdatedAt    string `json:"updated_at"`
}

// BatchSyncRow is a transient projection driving one sync submission row.
// IssueKey is user-editable before submission. Date is set only for
// week-scale batches where a single row list spans multiple days.
type BatchSyncRow struct {
	ProjectPath string  `json:"project_path"`
	ProjectName string  `json:"project_name"`
	IssueKey    string  `json:"issue_key"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description,omitempty"`
	IsManual    bool    `json:"is_manual"`
	Date        string  `json:"date,omitempty"`
}

// SyncOutcome is the per-row result of a sync submission.
type SyncOutcome struct {
	ProjectPath    string `json:"project_path"`
	Date           string `json:"date"`
	Success        bool   `json:"success"`
	TempoWorklogID string `json:"tempo_worklog_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// WorklogDayProject summarizes one auto-tracked project within a day.
type WorklogDayProject struct {
	ProjectPath   string  `json:"project_path"`
	ProjectName   string  `json:"project_name"`
	DailySummary  string  `json:"daily_summary,omitempty"`
	TotalCommits  int     `json:"total_commits"`
	TotalFiles    int     `json:"total_files"`
	TotalHours    float64 `json:"total_hours"`
	HasHourlyData bool    `json:"has_hourly_data"`
}

// WorklogDay is one day in the worklog overview: auto-detected project
// activity plus manual items.
type WorklogDay struct {
	Date        string              `json:"date"`
	Weekday     string              `json:"weekday"`
	Projects    []WorklogDayProject `json:"projects"`
	ManualItems []WorkItem          `json:"manual_items"`
}

// ExportConfig is a user-configured generic HTTP export endpoint.
// AuthToken is never returned by list operations.
type ExportConfig struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Method          string `json:"method"`
	AuthType        string `json:"auth_type"` // "none", "bearer", "header"
	AuthToken       string `json:"-"`
	AuthHeaderName  string `json:"auth_header_name,omitempty"`
	PayloadTemplate string `json:"payload_template"`
	BatchMode       bool   `json:"batch_mode"`
	BatchWrapperKey string `json:"batch_wrapper_key"`
	Enabled         bool   `json:"enabled"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// ExportLog is one persisted per-item outcome of an HTTP export run.
type ExportLog struct {
	ID           string `json:"id"`
	ConfigID     string `json:"config_id"`
	WorkItemID   string `json:"work_item_id"`
	Status       string `json:"status"` // "success", "error"
	HTTPStatus   int    `json:"http_status,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ExportHistoryRecord marks that an item was successfully exported through a
// config at some point.
type ExportHistoryRecord struct {
	WorkItemID string `json:"work_item_id"`
	ExportedAt string `json:"exported_at"`
}

// ExportItemResult is the per-item outcome of an HTTP export run.
type ExportItemResult struct {
	WorkItemID     string `json:"work_item_id"`
	WorkItemTitle  string `json:"work_item_title"`
	Status         string `json:"status"` // "success", "error", "dry_run"
	HTTPStatus     int    `json:"http_status,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	PayloadPreview string `json:"payload_preview,omitempty"`
}

// ExportResult is the aggregate outcome of an HTTP export run.
type ExportResult struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	DryRun     bool               `json:"dry_run"`
	Results    []ExportItemResult `json:"results"`
}
