package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migration files are written during development.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the migration files compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrate: embedded migrations: %v", err))
	}
	return sub
}

// Report summarizes a single migration touched by a command.
type Report struct {
	Version   int64
	Source    string
	Applied   bool
	Direction string
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		fsys = Migrations()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run executes up, down or status against db. A nil fsys uses the embedded
// migrations.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, command string) ([]Report, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose up: %w", err)
		}
		return fromResults(results), nil

	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				return nil, nil
			}
			return nil, fmt.Errorf("goose down: %w", err)
		}
		return fromResults([]*goose.MigrationResult{result}), nil

	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose status: %w", err)
		}
		reports := make([]Report, 0, len(statuses))
		for _, st := range statuses {
			if st == nil || st.Source == nil {
				continue
			}
			reports = append(reports, Report{
				Version: st.Source.Version,
				Source:  st.Source.Path,
				Applied: st.State == goose.StateApplied,
			})
		}
		return reports, nil

	default:
		return nil, fmt.Errorf("unsupported migrate command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string) ([]Report, error) {
	if targetVersion == "" {
		return nil, errors.New("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return fromResults(results), nil
}

func fromResults(results []*goose.MigrationResult) []Report {
	reports := make([]Report, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		reports = append(reports, Report{
			Version:   res.Source.Version,
			Source:    res.Source.Path,
			Applied:   res.Direction == "up",
			Direction: res.Direction,
		})
	}
	return reports
}
