package httpexport

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Field describes one placeholder a payload template may use.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AvailableFields lists every placeholder honored by RenderTemplate.
func AvailableFields() []Field {
	return []Field{
		{Name: "title", Description: "Work item title"},
		{Name: "description", Description: "Work item description"},
		{Name: "hours", Description: "Hours worked (number)"},
		{Name: "date", Description: "Date (YYYY-MM-DD)"},
		{Name: "source", Description: "Data source"},
		{Name: "jira_issue_key", Description: "Jira issue key"},
		{Name: "project_name", Description: "Project name"},
	}
}

// ValidateResult is the outcome of checking a payload template.
type ValidateResult struct {
	Valid        bool     `json:"valid"`
	FieldsUsed   []string `json:"fields_used"`
	SampleOutput string   `json:"sample_output,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// RenderTemplate substitutes {{field}} placeholders in a JSON template
// with values from the item. String values are escaped; when a
// placeholder sits inside a JSON string literal the quotes come from the
// template, otherwise the replacement carries its own. Missing values
// become "" inside strings and null outside. The rendered output must be
// valid JSON.
func RenderTemplate(template string, item map[string]any) (string, error) {
	result := template
	for _, field := range extractPlaceholders(template) {
		placeholder := "{{" + field + "}}"
		inString := insideJSONString(template, placeholder)
		result = strings.ReplaceAll(result, placeholder, renderValue(item[field], inString))
	}

	if !json.Valid([]byte(result)) {
		return "", eris.Errorf("rendered template is not valid JSON: %s", result)
	}
	return result, nil
}

// ValidateTemplate renders the template against sample data and reports
// the placeholders it uses.
func ValidateTemplate(template string) ValidateResult {
	fields := extractPlaceholders(template)
	sample := map[string]any{
		"title":          "Fix login page layout",
		"description":    "Adjust form styles and add a reset-password link",
		"hours":          2.5,
		"date":           "2026-02-11",
		"source":         "claude_code",
		"jira_issue_key": "PROJ-42",
		"project_name":   "worklog",
	}

	output, err := RenderTemplate(template, sample)
	if err != nil {
		return ValidateResult{Valid: false, FieldsUsed: fields, Error: err.Error()}
	}
	return ValidateResult{Valid: true, FieldsUsed: fields, SampleOutput: output}
}

func renderValue(value any, inString bool) string {
	switch v := value.(type) {
	case string:
		escaped := jsonEscape(v)
		if inString {
			return escaped
		}
		return `"` + escaped + `"`
	case float64:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	case int:
		encoded, _ := json.Marshal(v)
		return string(encoded)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		if inString {
			return ""
		}
		return "null"
	default:
		return ""
	}
}

func extractPlaceholders(template string) []string {
	var fields []string
	seen := make(map[string]bool)
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			break
		}
		field := strings.TrimSpace(rest[start+2 : start+2+end])
		if field != "" && !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
		rest = rest[start+2+end+2:]
	}
	return fields
}

// insideJSONString reports whether the placeholder's first occurrence is
// within a JSON string literal, judged by the parity of unescaped quotes
// before it.
func insideJSONString(template, placeholder string) bool {
	pos := strings.Index(template, placeholder)
	if pos < 0 {
		return false
	}
	quotes := 0
	for i := 0; i < pos; i++ {
		if template[i] == '"' && (i == 0 || template[i-1] != '\\') {
			quotes++
		}
	}
	return quotes%2 == 1
}

func jsonEscape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}
