// Package local implements the backend command boundary against the local
// sqlite store, the Tempo REST API, and user-configured HTTP export
// endpoints.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/backend"
	"github.com/benoctopus/worklog/internal/db"
	"github.com/benoctopus/worklog/internal/httpexport"
	"github.com/benoctopus/worklog/internal/models"
	"github.com/benoctopus/worklog/internal/period"
	"github.com/benoctopus/worklog/internal/tempo"
)

const defaultPageLimit = 10

// WorklogPoster pushes a single worklog entry to Tempo.
type WorklogPoster interface {
	CreateWorklog(ctx context.Context, entry tempo.WorklogEntry) (tempo.WorklogResponse, error)
}

// Service implements backend.Backend over the local store.
type Service struct {
	store  *sql.DB
	poster WorklogPoster
	log    *slog.Logger
	now    func() time.Time
}

var _ backend.Backend = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a service over an initialized database. poster may be nil
// when no Tempo credentials are configured; sync operations then fail with
// a clear error.
func New(store *sql.DB, poster WorklogPoster, opts ...Option) *Service {
	s := &Service{
		store:  store,
		poster: poster,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==================== Timeline ====================

// FetchTimelinePage buckets work items into period groups, newest first.
// The continuation cursor is the period start of the last returned group;
// the next page covers everything strictly before it.
func (s *Service) FetchTimelinePage(ctx context.Context, q backend.TimelineQuery) (backend.TimelinePage, error) {
	if !period.ValidUnit(q.TimeUnit) {
		return backend.TimelinePage{}, eris.Errorf("invalid time unit: %s", q.TimeUnit)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	rangeEnd := q.RangeEnd
	if q.Cursor != "" {
		cursorDate, err := period.ParseDate(q.Cursor)
		if err != nil {
			return backend.TimelinePage{}, eris.Wrap(err, "invalid cursor")
		}
		rangeEnd = cursorDate.AddDate(0, 0, -1).Format(period.DateLayout)
	}
	if q.RangeStart != "" && rangeEnd < q.RangeStart {
		return backend.TimelinePage{}, nil
	}

	items, err := db.ListWorkItems(s.store, "", q.RangeStart, rangeEnd)
	if err != nil {
		return backend.TimelinePage{}, err
	}
	items = filterItems(items, q.ProjectName, q.Sources)

	// Bucket by period start.
	buckets := make(map[string][]models.WorkItem)
	for _, item := range items {
		date, err := period.ParseDate(item.Date)
		if err != nil {
			s.log.Warn("skipping item with malformed date", "id", item.ID, "date", item.Date)
			continue
		}
		start, _ := period.Bounds(date, q.TimeUnit)
		key := start.Format(period.DateLayout)
		buckets[key] = append(buckets[key], item)
	}

	starts := make([]string, 0, len(buckets))
	for key := range buckets {
		starts = append(starts, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(starts)))

	hasMore := len(starts) > limit
	if hasMore {
		starts = starts[:limit]
	}

	page := backend.TimelinePage{HasMore: hasMore}
	for _, key := range starts {
		date, _ := period.ParseDate(key)
		start, end := period.Bounds(date, q.TimeUnit)
		group := models.TimelineGroup{
			PeriodStart: start.Format(period.DateLayout),
			PeriodEnd:   end.Format(period.DateLayout),
			PeriodLabel: period.Label(date, q.TimeUnit),
		}
		for _, item := range buckets[key] {
			group.Sessions = append(group.Sessions, itemSession(item))
			group.TotalHours += item.Hours
		}
		page.Groups = append(page.Groups, group)
	}
	if hasMore && len(page.Groups) > 0 {
		page.NextCursor = page.Groups[len(page.Groups)-1].PeriodStart
	}
	return page, nil
}

func filterItems(items []models.WorkItem, projectName string, sources []string) []models.WorkItem {
	if projectName == "" && len(sources) == 0 {
		return items
	}
	allowed := make(map[string]bool, len(sources))
	for _, src := range sources {
		allowed[src] = true
	}
	var out []models.WorkItem
	for _, item := range items {
		if projectName != "" && item.ProjectName != projectName {
			continue
		}
		if len(sources) > 0 && !allowed[item.Source] {
			continue
		}
		out = append(out, item)
	}
	return out
}

func itemSession(item models.WorkItem) models.TimelineSession {
	return models.TimelineSession{
		ID:        item.ID,
		Source:    item.Source,
		Title:     item.Title,
		StartTime: item.Date,
		EndTime:   item.Date,
		Hours:     item.Hours,
		Summary:   item.Description,
	}
}

// ==================== Hourly Breakdown ====================

// FetchHourlyBreakdown returns the stored per-hour activity for one day
// and project.
func (s *Service) FetchHourlyBreakdown(ctx context.Context, date, projectPath string) ([]models.HourlyBreakdownItem, error) {
	return db.GetHourlyBreakdown(s.store, date, projectPath)
}

// ListManualItems lists work items matching the filter.
func (s *Service) ListManualItems(ctx context.Context, f backend.ItemFilter) ([]models.WorkItem, error) {
	return db.ListWorkItems(s.store, f.Source, f.StartDate, f.EndDate)
}

// ==================== Worklog Sync ====================

// WorklogOverview assembles day-by-day activity for the window: auto
// project summaries plus manual items. Days with no activity are absent.
func (s *Service) WorklogOverview(ctx context.Context, from, to string) ([]models.WorklogDay, error) {
	items, err := db.ListWorkItems(s.store, "", from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]models.WorkItem)
	for _, item := range items {
		byDate[item.Date] = append(byDate[item.Date], item)
	}

	dates, err := period.EnumerateDates(from, to)
	if err != nil {
		return nil, err
	}

	var days []models.WorklogDay
	for _, date := range dates {
		dayItems := byDate[date]
		if len(dayItems) == 0 {
			continue
		}
		day, err := s.buildDay(date, dayItems)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

func (s *Service) buildDay(date string, items []models.WorkItem) (models.WorklogDay, error) {
	parsed, err := period.ParseDate(date)
	if err != nil {
		return models.WorklogDay{}, err
	}
	day := models.WorklogDay{Date: date, Weekday: parsed.Weekday().String()}

	type agg struct {
		project models.WorklogDayProject
		titles  []string
	}
	byPath := make(map[string]*agg)
	var order []string
	for _, item := range items {
		if item.Source == models.SourceManual {
			day.ManualItems = append(day.ManualItems, item)
			continue
		}
		a, ok := byPath[item.ProjectPath]
		if !ok {
			a = &agg{project: models.WorklogDayProject{
				ProjectPath: item.ProjectPath,
				ProjectName: item.ProjectName,
			}}
			byPath[item.ProjectPath] = a
			order = append(order, item.ProjectPath)
		}
		a.project.TotalHours += item.Hours
		a.titles = append(a.titles, item.Title)
	}

	for _, path := range order {
		a := byPath[path]
		a.project.DailySummary = strings.Join(a.titles, "; ")

		breakdown, err := db.GetHourlyBreakdown(s.store, date, path)
		if err != nil {
			return models.WorklogDay{}, err
		}
		a.project.HasHourlyData = len(breakdown) > 0
		for _, hb := range breakdown {
			a.project.TotalCommits += len(hb.GitCommits)
			a.project.TotalFiles += len(hb.FilesModified)
		}
		day.Projects = append(day.Projects, a.project)
	}
	return day, nil
}

// GetSyncRecords returns sync records in the inclusive window.
func (s *Service) GetSyncRecords(ctx context.Context, from, to string) ([]models.WorklogSyncRecord, error) {
	return db.GetSyncRecords(s.store, from, to)
}

// GetMappings returns every remembered project-to-issue mapping.
func (s *Service) GetMappings(ctx context.Context) ([]models.ProjectIssueMapping, error) {
	return db.GetAllMappings(s.store)
}

// SaveMapping remembers the default issue key for a project.
func (s *Service) SaveMapping(ctx context.Context, projectPath, issueKey string) error {
	return db.UpsertMapping(s.store, projectPath, issueKey)
}

// SyncSingle pushes one row to Tempo and, on success, persists the sync
// record that excludes the row from future row-building.
func (s *Service) SyncSingle(ctx context.Context, row models.BatchSyncRow, date string) (models.SyncOutcome, error) {
	if s.poster == nil {
		return models.SyncOutcome{}, eris.New("tempo is not configured")
	}

	effDate := row.Date
	if effDate == "" {
		effDate = date
	}
	outcome := models.SyncOutcome{ProjectPath: row.ProjectPath, Date: effDate}
	if row.IssueKey == "" {
		outcome.Error = "missing issue key"
		return outcome, nil
	}

	resp, err := s.poster.CreateWorklog(ctx, tempo.WorklogEntry{
		IssueKey:         row.IssueKey,
		Date:             effDate,
		TimeSpentSeconds: int64(row.Hours * 3600),
		Description:      row.Description,
	})
	if err != nil {
		s.log.Warn("tempo worklog failed", "project", row.ProjectPath, "date", effDate, "error", err)
		outcome.Error = err.Error()
		return outcome, nil
	}

	outcome.Success = true
	outcome.TempoWorklogID = fmt.Sprintf("%d", resp.TempoWorklogID)

	record := &models.WorklogSyncRecord{
		ID:             uuid.NewString(),
		ProjectPath:    row.ProjectPath,
		Date:           effDate,
		JiraIssueKey:   row.IssueKey,
		Hours:          row.Hours,
		Description:    row.Description,
		TempoWorklogID: outcome.TempoWorklogID,
		SyncedAt:       s.now().UTC().Format(time.RFC3339),
	}
	if err := db.UpsertSyncRecord(s.store, record); err != nil {
		return outcome, eris.Wrap(err, "worklog pushed but sync record not persisted")
	}

	if err := db.UpsertMapping(s.store, row.ProjectPath, row.IssueKey); err != nil {
		s.log.Warn("failed to remember issue mapping", "project", row.ProjectPath, "error", err)
	}
	if row.IsManual {
		itemID := strings.TrimPrefix(row.ProjectPath, models.ManualKeyPrefix)
		if err := db.MarkWorkItemSynced(s.store, itemID, s.now().UTC()); err != nil {
			s.log.Warn("failed to flag manual item as synced", "item", itemID, "error", err)
		}
	}
	return outcome, nil
}

// SyncBatch pushes every row, collecting per-row outcomes. A failing row
// never aborts the rest.
func (s *Service) SyncBatch(ctx context.Context, rows []models.BatchSyncRow, date string) ([]models.SyncOutcome, error) {
	if len(rows) == 0 {
		return nil, eris.New("no rows to sync")
	}
	outcomes := make([]models.SyncOutcome, 0, len(rows))
	for _, row := range rows {
		outcome, err := s.SyncSingle(ctx, row, date)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// ==================== HTTP Export ====================

// ListExportConfigs lists export endpoint configs without credentials.
func (s *Service) ListExportConfigs(ctx context.Context) ([]models.ExportConfig, error) {
	return db.ListExportConfigs(s.store)
}

// GetExportHistory reports the latest successful export per item.
func (s *Service) GetExportHistory(ctx context.Context, configID string, itemIDs []string) ([]models.ExportHistoryRecord, error) {
	return db.GetExportHistory(s.store, configID, itemIDs)
}

// ExecuteExport renders each item through the config's payload template
// and delivers the batch. Committed runs persist per-item export logs.
func (s *Service) ExecuteExport(ctx context.Context, req backend.ExportRequest) (models.ExportResult, error) {
	config, err := db.GetExportConfig(s.store, req.ConfigID)
	if err != nil {
		return models.ExportResult{}, err
	}
	if !config.Enabled {
		return models.ExportResult{}, eris.Errorf("export config %q is disabled", config.Name)
	}

	items := req.InlineItems
	if len(items) == 0 {
		for _, id := range req.WorkItemIDs {
			item, err := db.GetWorkItem(s.store, id)
			if err != nil {
				return models.ExportResult{}, err
			}
			items = append(items, *item)
		}
	}
	if len(items) == 0 {
		return models.ExportResult{}, eris.New("no items to export")
	}

	rendered := make([]httpexport.Item, 0, len(items))
	for _, item := range items {
		payload, err := httpexport.RenderTemplate(config.PayloadTemplate, templateData(item))
		if err != nil {
			return models.ExportResult{}, eris.Wrapf(err, "failed to render payload for %q", item.Title)
		}
		rendered = append(rendered, httpexport.Item{ID: item.ID, Title: item.Title, Payload: json.RawMessage(payload)})
	}

	client, err := httpexport.NewClient(*config)
	if err != nil {
		return models.ExportResult{}, err
	}
	result := client.ExportItems(ctx, rendered, req.DryRun)

	if !req.DryRun {
		for _, r := range result.Results {
			log := &models.ExportLog{
				ID:           uuid.NewString(),
				ConfigID:     config.ID,
				WorkItemID:   r.WorkItemID,
				Status:       r.Status,
				HTTPStatus:   r.HTTPStatus,
				ErrorMessage: r.ErrorMessage,
			}
			if err := db.InsertExportLog(s.store, log); err != nil {
				s.log.Warn("failed to persist export log", "item", r.WorkItemID, "error", err)
			}
		}
	}
	return result, nil
}

func templateData(item models.WorkItem) map[string]any {
	return map[string]any{
		"title":          item.Title,
		"description":    item.Description,
		"hours":          item.Hours,
		"date":           item.Date,
		"source":         item.Source,
		"jira_issue_key": item.JiraIssueKey,
		"project_name":   item.ProjectName,
	}
}

// ==================== Work Items ====================

// CreateItem creates a work item, assigning its ID.
func (s *Service) CreateItem(ctx context.Context, c backend.CreateItem) (models.WorkItem, error) {
	if c.Title == "" {
		return models.WorkItem{}, eris.New("work item title is required")
	}
	if _, err := period.ParseDate(c.Date); err != nil {
		return models.WorkItem{}, err
	}

	source := c.Source
	if source == "" {
		source = models.SourceManual
	}
	item := &models.WorkItem{
		ID:           uuid.NewString(),
		Title:        c.Title,
		Description:  c.Description,
		Hours:        c.Hours,
		Date:         c.Date,
		Source:       source,
		ProjectPath:  c.ProjectPath,
		JiraIssueKey: c.JiraIssueKey,
	}
	if c.ProjectPath != "" {
		item.ProjectName = models.ProjectNameFromPath(c.ProjectPath)
	}
	if err := db.CreateWorkItem(s.store, item); err != nil {
		return models.WorkItem{}, err
	}
	return *item, nil
}

// UpdateItem applies a partial update and returns the stored item.
func (s *Service) UpdateItem(ctx context.Context, id string, u backend.UpdateItem) (models.WorkItem, error) {
	item, err := db.GetWorkItem(s.store, id)
	if err != nil {
		return models.WorkItem{}, err
	}

	if u.Title != nil {
		item.Title = *u.Title
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Hours != nil {
		item.Hours = *u.Hours
	}
	if u.Date != nil {
		if _, err := period.ParseDate(*u.Date); err != nil {
			return models.WorkItem{}, err
		}
		item.Date = *u.Date
	}
	if u.JiraIssueKey != nil {
		item.JiraIssueKey = *u.JiraIssueKey
	}

	if err := db.UpdateWorkItem(s.store, item); err != nil {
		return models.WorkItem{}, err
	}
	return *item, nil
}

// DeleteItem removes a work item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return db.DeleteWorkItem(s.store, id)
}

// MapItemIssue maps a work item to a Jira issue.
func (s *Service) MapItemIssue(ctx context.Context, id, issueKey string) error {
	if issueKey == "" {
		return eris.New("issue key is required")
	}
	return db.SetWorkItemIssueKey(s.store, id, issueKey)
}
