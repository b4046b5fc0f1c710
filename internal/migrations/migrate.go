package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// goose speaks the mattn dialect name for any sqlite driver.
const dialect = "sqlite3"

// Up applies all pending SQL migrations from dir.
func Up(database *sql.DB, dir string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(database, dir); err != nil {
		return fmt.Errorf("run goose migrations: %w", err)
	}

	return nil
}
