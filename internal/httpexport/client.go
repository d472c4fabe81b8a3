// Package httpexport pushes rendered work item payloads to user-configured
// HTTP endpoints: a small {{field}} template engine plus a client that
// supports per-item and batched delivery, auth header injection, and dry
// runs that preview payloads without sending anything.
package httpexport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/models"
)

const (
	defaultTimeoutSeconds = 30
	maxErrorBodyBytes     = 2000
)

// Item is one work item with its rendered payload.
type Item struct {
	ID      string
	Title   string
	Payload json.RawMessage
}

// TestConnectionResult reports whether a config's endpoint accepted a
// probe payload.
type TestConnectionResult struct {
	Success    bool   `json:"success"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Message    string `json:"message"`
}

// Client delivers payloads for one export config.
type Client struct {
	config     models.ExportConfig
	httpClient *http.Client
}

// NewClient builds a client from an export config. The auth type decides
// which header carries the token: "bearer" and "basic" use Authorization,
// "header" uses the configured header name, "none" sends no credential.
func NewClient(config models.ExportConfig) (*Client, error) {
	switch config.AuthType {
	case "none", "bearer", "basic", "header":
	default:
		return nil, eris.Errorf("unknown auth type %q", config.AuthType)
	}
	if config.AuthType == "header" && config.AuthHeaderName == "" {
		return nil, eris.New("auth type \"header\" requires a header name")
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if config.TimeoutSeconds <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) method() string {
	switch strings.ToUpper(c.config.Method) {
	case http.MethodPut:
		return http.MethodPut
	case http.MethodPatch:
		return http.MethodPatch
	default:
		return http.MethodPost
	}
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, c.method(), c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "failed to create export request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	switch c.config.AuthType {
	case "bearer":
		if c.config.AuthToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
		}
	case "basic":
		if c.config.AuthToken != "" {
			encoded := base64.StdEncoding.EncodeToString([]byte(c.config.AuthToken))
			req.Header.Set("Authorization", "Basic "+encoded)
		}
	case "header":
		if c.config.AuthToken != "" {
			req.Header.Set(c.config.AuthHeaderName, c.config.AuthToken)
		}
	}
	return req, nil
}

// ExportItems delivers the items. A dry run previews every payload as
// successful without touching the network. Per-item failures never abort
// the run; they are reported in the per-item results.
func (c *Client) ExportItems(ctx context.Context, items []Item, dryRun bool) models.ExportResult {
	if dryRun {
		result := models.ExportResult{Total: len(items), Successful: len(items), DryRun: true}
		for _, item := range items {
			result.Results = append(result.Results, models.ExportItemResult{
				WorkItemID:     item.ID,
				WorkItemTitle:  item.Title,
				Status:         "dry_run",
				PayloadPreview: string(item.Payload),
			})
		}
		return result
	}

	if c.config.BatchMode {
		return c.exportBatch(ctx, items)
	}
	return c.exportIndividually(ctx, items)
}

func (c *Client) exportIndividually(ctx context.Context, items []Item) models.ExportResult {
	result := models.ExportResult{Total: len(items)}
	for _, item := range items {
		itemResult := models.ExportItemResult{
			WorkItemID:     item.ID,
			WorkItemTitle:  item.Title,
			PayloadPreview: string(item.Payload),
		}

		status, errMsg := c.send(ctx, item.Payload)
		itemResult.HTTPStatus = status
		if errMsg == "" {
			itemResult.Status = "success"
			result.Successful++
		} else {
			itemResult.Status = "error"
			itemResult.ErrorMessage = errMsg
			result.Failed++
		}
		result.Results = append(result.Results, itemResult)
	}
	return result
}

func (c *Client) exportBatch(ctx context.Context, items []Item) models.ExportResult {
	payloads := make([]json.RawMessage, len(items))
	for i, item := range items {
		payloads[i] = item.Payload
	}
	wrapperKey := c.config.BatchWrapperKey
	if wrapperKey == "" {
		wrapperKey = "items"
	}
	body, err := json.Marshal(map[string]any{wrapperKey: payloads})

	var status int
	var errMsg string
	if err != nil {
		errMsg = eris.Wrap(err, "failed to encode batch payload").Error()
	} else {
		status, errMsg = c.send(ctx, body)
	}

	// The whole batch shares one request, so every item shares its fate.
	result := models.ExportResult{Total: len(items)}
	for _, item := range items {
		itemResult := models.ExportItemResult{
			WorkItemID:     item.ID,
			WorkItemTitle:  item.Title,
			HTTPStatus:     status,
			PayloadPreview: string(item.Payload),
		}
		if errMsg == "" {
			itemResult.Status = "success"
			result.Successful++
		} else {
			itemResult.Status = "error"
			itemResult.ErrorMessage = errMsg
			result.Failed++
		}
		result.Results = append(result.Results, itemResult)
	}
	return result
}

// send posts one payload and returns the HTTP status plus an error
// message, empty on success.
func (c *Client) send(ctx context.Context, payload []byte) (int, string) {
	req, err := c.newRequest(ctx, payload)
	if err != nil {
		return 0, err.Error()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp.StatusCode, ""
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return resp.StatusCode, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))
}

// TestConnection sends a small probe payload to the configured endpoint.
func (c *Client) TestConnection(ctx context.Context) TestConnectionResult {
	probe := []byte(`{"test": true, "source": "worklog"}`)
	status, errMsg := c.send(ctx, probe)
	if errMsg != "" {
		return TestConnectionResult{Success: false, HTTPStatus: status, Message: errMsg}
	}
	return TestConnectionResult{Success: true, HTTPStatus: status, Message: "endpoint accepted the test payload"}
}
