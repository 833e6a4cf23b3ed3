package db

import (
	"context"
	"embed"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

// Migrate runs the embedded goose migrations over the pool's connections.
// Status output is written to out when non-nil.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir Direction, out io.Writer) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if out != nil {
		goose.SetLogger(&writerLogger{w: out})
	}

	switch dir {
	case Up:
		if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
	case Down:
		if err := goose.DownContext(ctx, sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
	case Status:
		if err := goose.StatusContext(ctx, sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	return nil
}

type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Fatalf(format string, v ...interface{}) {
	fmt.Fprintf(l.w, format+"\n", v...)
}

func (l *writerLogger) Printf(format string, v ...interface{}) {
	fmt.Fprintf(l.w, format, v...)
}
