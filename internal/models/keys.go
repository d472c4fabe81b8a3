package models

import (
	"path"
	"strings"
)

// ManualKeyPrefix marks reconciliation keys derived from manual work items
// rather than auto-tracked project paths.
const ManualKeyPrefix = "manual:"

// ManualKey derives the reconciliation key for a manual work item.
func ManualKey(itemID string) string {
	return ManualKeyPrefix + itemID
}

// IsManualKey reports whether a project path/key identifies a manual entry
// instead of an auto-tracked project directory.
func IsManualKey(projectPath string) bool {
	return strings.HasPrefix(projectPath, ManualKeyPrefix)
}

// ProjectNameFromPath derives a display name from a project path: the last
// path segment, or the path itself when it has none.
func ProjectNameFromPath(projectPath string) string {
	trimmed := strings.TrimRight(projectPath, "/")
	if trimmed == "" {
		return projectPath
	}
	return path.Base(trimmed)
}
