// Package tempo is an authenticated client for the Jira and Tempo
// Timesheets REST APIs, used to push worklogs for synced activity.
package tempo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 30 * time.Second

	myselfPath   = "/rest/api/2/myself"
	worklogsPath = "/rest/tempo-timesheets/4/worklogs"
)

// WorklogEntry is one worklog to upload.
type WorklogEntry struct {
	IssueKey         string `json:"issue_key"`
	Date             string `json:"date"` // YYYY-MM-DD
	TimeSpentSeconds int64  `json:"time_spent_seconds"`
	Description      string `json:"description"`
	AccountID        string `json:"account_id,omitempty"`
}

// WorklogResponse identifies a created worklog.
type WorklogResponse struct {
	ID             string `json:"id"`
	TempoWorklogID int64  `json:"tempoWorklogId"`
}

// User is the authenticated Jira user. Server and Cloud deployments
// populate different identifier fields.
type User struct {
	AccountID   string `json:"accountId"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
}

// Identifier returns the worker identifier: accountId on Cloud, name or
// key on Server.
func (u User) Identifier() string {
	switch {
	case u.AccountID != "":
		return u.AccountID
	case u.Name != "":
		return u.Name
	default:
		return u.Key
	}
}

// Client talks to one Jira base URL with a bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL using a static API token.
func New(ctx context.Context, baseURL, token string, opts ...Option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = defaultTimeout

	c := &Client{
		baseURL:    trimTrailingSlash(baseURL),
		httpClient: hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Myself returns the authenticated user.
func (c *Client) Myself(ctx context.Context) (User, error) {
	var user User
	if err := c.getJSON(ctx, c.baseURL+myselfPath, nil, &user); err != nil {
		return User{}, eris.Wrap(err, "failed to fetch current user")
	}
	return user, nil
}

// TestConnection verifies the base URL and token, returning the display
// name of the authenticated user. Auth failures are reported through the
// bool, not the error.
func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	user, err := c.Myself(ctx)
	if err != nil {
		return false, fmt.Sprintf("connection failed: %v", err)
	}
	name := user.DisplayName
	if name == "" {
		name = user.Identifier()
	}
	return true, fmt.Sprintf("connected as %s", name)
}

// CreateWorklog posts one worklog to the Tempo Timesheets API. The start
// time is fixed at 09:00 since the source data is day-granular.
func (c *Client) CreateWorklog(ctx context.Context, entry WorklogEntry) (WorklogResponse, error) {
	if entry.IssueKey == "" {
		return WorklogResponse{}, eris.New("worklog entry has no issue key")
	}

	payload := map[string]any{
		"issueKey":         entry.IssueKey,
		"timeSpentSeconds": entry.TimeSpentSeconds,
		"startDate":        entry.Date,
		"startTime":        "09:00:00",
		"description":      entry.Description,
	}
	if entry.AccountID != "" {
		payload["authorAccountId"] = entry.AccountID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return WorklogResponse{}, eris.Wrap(err, "failed to encode worklog payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+worklogsPath, bytes.NewReader(body))
	if err != nil {
		return WorklogResponse{}, eris.Wrap(err, "failed to create worklog request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WorklogResponse{}, eris.Wrapf(err, "worklog request to %s failed", entry.IssueKey)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return WorklogResponse{}, eris.Wrap(err, "failed to read worklog response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return WorklogResponse{}, eris.Errorf("tempo worklog error %d: %s", resp.StatusCode, string(respBody))
	}

	var raw struct {
		ID             json.Number `json:"id"`
		TempoWorklogID int64       `json:"tempoWorklogId"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return WorklogResponse{}, eris.Wrap(err, "failed to decode worklog response")
	}
	return WorklogResponse{ID: raw.ID.String(), TempoWorklogID: raw.TempoWorklogID}, nil
}

// ListWorklogs fetches worklogs in an inclusive date range, optionally
// filtered to one worker.
func (c *Client) ListWorklogs(ctx context.Context, dateFrom, dateTo, worker string) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("dateFrom", dateFrom)
	query.Set("dateTo", dateTo)
	if worker != "" {
		query.Set("worker", worker)
	}

	var worklogs []json.RawMessage
	if err := c.getJSON(ctx, c.baseURL+worklogsPath, query, &worklogs); err != nil {
		return nil, eris.Wrap(err, "failed to list tempo worklogs")
	}
	return worklogs, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eris.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "failed to decode response")
	}
	return nil
}
