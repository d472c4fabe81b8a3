package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/benoctopus/worklog/internal/config"
	"github.com/benoctopus/worklog/internal/db"
	"github.com/benoctopus/worklog/internal/local"
	"github.com/benoctopus/worklog/internal/period"
	"github.com/benoctopus/worklog/internal/tempo"
)

// newLogger builds the CLI logger. Warnings and errors only, unless
// WORKLOG_DEBUG is set.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("WORKLOG_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openService opens the database and builds the backend service. A Tempo
// poster is attached only when both the Jira URL and a token are configured;
// read-only commands work without either.
func openService(ctx context.Context) (*sql.DB, *local.Service, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, eris.Wrap(err, "failed to ensure config directory")
	}

	dbPath, err := config.GetDBPath()
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to get database path")
	}

	database, err := db.InitDB(dbPath)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to initialize database")
	}

	poster, err := tempoPoster(ctx)
	if err != nil {
		database.Close() //nolint:errcheck
		return nil, nil, err
	}

	svc := local.New(database, poster, local.WithLogger(newLogger()))
	return database, svc, nil
}

// tempoPoster builds the Tempo client from configuration. Returns a nil
// poster (not an error) when Tempo is unconfigured.
func tempoPoster(ctx context.Context) (local.WorklogPoster, error) {
	jiraURL, err := config.GetJiraURL()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get jira url")
	}
	if jiraURL == "" {
		return nil, nil
	}

	token, err := config.GetTempoToken()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get tempo token")
	}
	if token == "" {
		return nil, nil
	}

	return tempo.New(ctx, jiraURL, token), nil
}

// resolveWindow fills missing window bounds from the default lookback
// window for the time unit, and validates any explicit bounds.
func resolveWindow(from, to, unit string) (string, string, error) {
	defStart, defEnd := period.DefaultWindow(time.Now(), unit)

	if from == "" {
		from = defStart.Format(period.DateLayout)
	} else if _, err := period.ParseDate(from); err != nil {
		return "", "", eris.Wrapf(err, "invalid --from date: %s", from)
	}

	if to == "" {
		to = defEnd.Format(period.DateLayout)
	} else if _, err := period.ParseDate(to); err != nil {
		return "", "", eris.Wrapf(err, "invalid --to date: %s", to)
	}

	if to < from {
		return "", "", eris.Errorf("--to %s is before --from %s", to, from)
	}
	return from, to, nil
}
