// Package database provides SQLite connectivity for GoHome.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Ordered, per-migration transactional schema migrations
//   - Health checks and pool statistics for the metrics endpoint
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql with an optional
// matching .down.sql. Migrations are additive: new columns must be
// nullable or carry a default.
package database
