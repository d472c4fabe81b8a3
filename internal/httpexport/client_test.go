package httpexport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benoctopus/worklog/internal/models"
)

func testConfig(url string) models.ExportConfig {
	return models.ExportConfig{
		ID:              "cfg1",
		Name:            "test endpoint",
		URL:             url,
		Method:          "POST",
		AuthType:        "bearer",
		AuthToken:       "secret",
		PayloadTemplate: `{"summary": {{title}}}`,
		TimeoutSeconds:  5,
	}
}

func testItems() []Item {
	return []Item{
		{ID: "w1", Title: "one", Payload: json.RawMessage(`{"summary": "one"}`)},
		{ID: "w2", Title: "two", Payload: json.RawMessage(`{"summary": "two"}`)},
	}
}

func TestExportIndividually(t *testing.T) {
	var requests []string
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, string(body))
		auths = append(auths, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	result := client.ExportItems(context.Background(), testItems(), false)
	if result.Total != 2 || result.Successful != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(requests) != 2 {
		t.Fatalf("server saw %d requests, want one per item", len(requests))
	}
	if auths[0] != "Bearer secret" {
		t.Errorf("Authorization = %q", auths[0])
	}
	if result.Results[0].Status != "success" || result.Results[0].HTTPStatus != 200 {
		t.Errorf("item result = %+v", result.Results[0])
	}
}

func TestExportPartialFailure(t *testing.T) {
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n++
		if n == 2 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte("bad item"))
		}
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	result := client.ExportItems(context.Background(), testItems(), false)
	if result.Successful != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want one success and one failure", result)
	}
	failed := result.Results[1]
	if failed.Status != "error" || failed.HTTPStatus != 422 || failed.ErrorMessage == "" {
		t.Errorf("failed item = %+v", failed)
	}
}

func TestExportBatchMode(t *testing.T) {
	var body []byte
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BatchMode = true
	cfg.BatchWrapperKey = "entries"
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	result := client.ExportItems(context.Background(), testItems(), false)
	if calls != 1 {
		t.Fatalf("server saw %d requests, want a single batch", calls)
	}
	if result.Successful != 2 {
		t.Errorf("result = %+v", result)
	}

	var decoded map[string][]map[string]string
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("batch payload is not valid JSON: %v", err)
	}
	if len(decoded["entries"]) != 2 {
		t.Errorf("batch payload = %s, want both items under the wrapper key", body)
	}
}

func TestDryRunSendsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run hit the network")
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	result := client.ExportItems(context.Background(), testItems(), true)
	if !result.DryRun || result.Successful != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Results[0].Status != "dry_run" || result.Results[0].PayloadPreview == "" {
		t.Errorf("dry run item = %+v, want status dry_run with a payload preview", result.Results[0])
	}
}

func TestCustomAuthHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Api-Key")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.AuthType = "header"
	cfg.AuthHeaderName = "X-Api-Key"
	cfg.AuthToken = "key123"
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	client.ExportItems(context.Background(), testItems()[:1], false)
	if got != "key123" {
		t.Errorf("X-Api-Key = %q", got)
	}
}

func TestNewClientValidation(t *testing.T) {
	cfg := testConfig("http://example.invalid")
	cfg.AuthType = "header"
	cfg.AuthHeaderName = ""
	if _, err := NewClient(cfg); err == nil {
		t.Error("NewClient() accepted auth type header without a header name")
	}

	cfg.AuthType = "magic"
	if _, err := NewClient(cfg); err == nil {
		t.Error("NewClient() accepted an unknown auth type")
	}
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !json.Valid(body) {
			t.Errorf("probe payload is not JSON: %s", body)
		}
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	result := client.TestConnection(context.Background())
	if !result.Success || result.HTTPStatus != 200 {
		t.Errorf("TestConnection() = %+v", result)
	}
}
