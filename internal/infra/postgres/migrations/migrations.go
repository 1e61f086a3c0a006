package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the schema history, one registered pair per file.
var Migrations = migrate.NewMigrations()
