package loader

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schemaSQL string

// InitDatabase applies the database schema. Every statement is
// IF NOT EXISTS, so calling this on an existing database is a no-op.
func InitDatabase(db *sqlx.DB) error {
	log.Println("Applying database schema...")
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	log.Println("Schema applied successfully.")
	return nil
}
