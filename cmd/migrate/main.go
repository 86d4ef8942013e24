package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/tapify/tapify-backend/pkg/config"
	"github.com/tapify/tapify-backend/pkg/db"
	"github.com/tapify/tapify-backend/pkg/logger"
	"github.com/tapify/tapify-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
	useDisk bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory for create, validate and -disk")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&opts.useDisk, "disk", false, "read migrations from -dir instead of the embedded set")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil

	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fmt.Errorf("migration validation failed: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.db_unavailable", err)
		return err
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	var fsys fs.FS
	if opts.useDisk {
		fsys = os.DirFS(opts.dir)
	}

	reports, err := dispatch(ctx, sqlDB, fsys, opts)
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}

	logg.Info(logg.WithField(ctx, "migrations", len(reports)), "migrate.complete")
	printReports(opts.cmd, reports)
	return nil
}

func dispatch(ctx context.Context, sqlDB *sql.DB, fsys fs.FS, opts options) ([]migrate.Report, error) {
	switch opts.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, fsys, opts.cmd)
	case "version":
		if opts.version == "" {
			return nil, fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, fsys, opts.version)
	default:
		return nil, fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}
}

func printReports(cmd string, reports []migrate.Report) {
	if len(reports) == 0 {
		fmt.Println("no migrations to apply")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, r := range reports {
		state := r.Direction
		if cmd == "status" {
			state = "pending"
			if r.Applied {
				state = "applied"
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.Version, state, r.Source)
	}
}
