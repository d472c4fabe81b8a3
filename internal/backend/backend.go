// Package backend defines the command boundary to the backend service.
// The coordination layer treats it as a set of named operations with typed
// request/response shapes; how they are transported is the backend's concern.
package backend

import (
	"context"

	"github.com/benoctopus/worklog/internal/models"
)

// TimelineQuery describes one timeline page request.
type TimelineQuery struct {
	ProjectName string
	TimeUnit    string // "day", "week", "month", "quarter", "year"
	RangeStart  string // "2006-01-02"
	RangeEnd    string
	Sources     []string // empty = unfiltered
	Cursor      string   // opaque continuation token, empty for the first page
	Limit       int
}

// TimelinePage is one page of period-bucketed groups.
type TimelinePage struct {
	Groups     []models.TimelineGroup
	HasMore    bool
	NextCursor string
}

// ItemFilter narrows a work item listing.
type ItemFilter struct {
	Source    string
	StartDate string
	EndDate   string
}

// ExportRequest describes one HTTP export execution.
type ExportRequest struct {
	ConfigID    string
	WorkItemIDs []string
	// InlineItems carries items that do not exist in the store, e.g. rows
	// assembled on the worklog page. When set, WorkItemIDs is ignored.
	InlineItems []models.WorkItem
	DryRun      bool
}

// CreateItem is the payload for creating a work item. The backend assigns
// the ID; the client never invents one.
type CreateItem struct {
	Title        string
	Description  string
	Hours        float64
	Date         string
	Source       string
	ProjectPath  string
	JiraIssueKey string
}

// UpdateItem is a partial update; nil fields are left unchanged.
type UpdateItem struct {
	Title        *string
	Description  *string
	Hours        *float64
	Date         *string
	JiraIssueKey *string
}

// Timeline is the paginated timeline operation consumed by the aggregator.
type Timeline interface {
	FetchTimelinePage(ctx context.Context, q TimelineQuery) (TimelinePage, error)
}

// Breakdown provides per-hour activity and manual item listings consumed by
// the hourly materializer.
type Breakdown interface {
	FetchHourlyBreakdown(ctx context.Context, date, projectPath string) ([]models.HourlyBreakdownItem, error)
	ListManualItems(ctx context.Context, f ItemFilter) ([]models.WorkItem, error)
}

// WorklogSync covers the Tempo reconciliation surface.
type WorklogSync interface {
	WorklogOverview(ctx context.Context, from, to string) ([]models.WorklogDay, error)
	GetSyncRecords(ctx context.Context, from, to string) ([]models.WorklogSyncRecord, error)
	GetMappings(ctx context.Context) ([]models.ProjectIssueMapping, error)
	SaveMapping(ctx context.Context, projectPath, issueKey string) error
	SyncSingle(ctx context.Context, row models.BatchSyncRow, date string) (models.SyncOutcome, error)
	SyncBatch(ctx context.Context, rows []models.BatchSyncRow, date string) ([]models.SyncOutcome, error)
}

// Export covers the generic HTTP export surface.
type Export interface {
	ListExportConfigs(ctx context.Context) ([]models.ExportConfig, error)
	GetExportHistory(ctx context.Context, configID string, itemIDs []string) ([]models.ExportHistoryRecord, error)
	ExecuteExport(ctx context.Context, req ExportRequest) (models.ExportResult, error)
}

// Items covers work item CRUD collaborators.
type Items interface {
	CreateItem(ctx context.Context, c CreateItem) (models.WorkItem, error)
	UpdateItem(ctx context.Context, id string, u UpdateItem) (models.WorkItem, error)
	DeleteItem(ctx context.Context, id string) error
	MapItemIssue(ctx context.Context, id, issueKey string) error
}

// Backend is the full command boundary.
type Backend interface {
	Timeline
	Breakdown
	WorklogSync
	Export
	Items
}
