// Package db provides database connection and schema migration utilities.
//
// # Connection
//
//	database, err := db.Connect(db.Config{URL: cfg.DatabaseURL})
//	if err != nil {
//	    return err
//	}
//
// # Migrations
//
// Migrations are embedded from pkg/db/migrations and applied with
// golang-migrate. Bookkeeping lives in the quizdesk_schema_migrations table.
//
//	ran, err := db.Migrate(cfg.DatabaseURL)
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
package db
