package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/contentanonymity/backend/internal/logger"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// OpenSQL opens a plain database/sql handle on PostgreSQL through lib/pq,
// for tools that only need the migrator.
func OpenSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}

// RunSQLMigrations applies the embedded PostgreSQL migrations.
// command is one of up, down or status.
func RunSQLMigrations(db *sql.DB, command string) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return fmt.Errorf("setting dialect for migrations: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(db, "migrations")
	case "down":
		err = goose.Down(db, "migrations")
	case "status":
		err = goose.Status(db, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migrations %s: %w", command, err)
	}
	return nil
}

// gooseLogger forwards goose output to zap
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.SugaredLog.Infof(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.SugaredLog.Fatalf(format, v...)
}
