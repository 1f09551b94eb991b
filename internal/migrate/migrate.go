package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/esumbrandon/Schnei/migrations"
)

// Up runs embedded Goose migrations.
func Up(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	return run(ctx, db, log, "up")
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	return run(ctx, db, log, "down")
}

// Status logs the applied state of every embedded migration.
func Status(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	return run(ctx, db, log, "status")
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	if err := setup(slog.Default()); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}

func run(ctx context.Context, db *sql.DB, log *slog.Logger, command string) error {
	if err := setup(log); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func setup(log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	goose.SetBaseFS(migrations.Files)
	goose.SetLogger(gooseLogger{log: log})
	goose.SetVerbose(false)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...), "component", "migrate")
	os.Exit(1)
}
