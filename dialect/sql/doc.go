// Package sql provides the database/sql implementation of the dialect
// abstraction, plus the statement classifier used to route ad-hoc SQL.
//
// # Driver
//
// Driver adapts a *sql.DB to the dialect.Driver interface:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Statement Classification
//
// LeadingKeyword classifies a raw SQL string by its leading verb so
// callers can decide whether to run it on the query path (rows) or the
// exec path (affected-row count):
//
//	sql.LeadingKeyword("SELECT * FROM users")                    // KindSelect
//	sql.LeadingKeyword("-- note\nINSERT INTO t VALUES (1)")      // KindInsert
//	sql.LeadingKeyword("WITH c AS (SELECT 1) UPDATE t SET x=1")  // KindUpdate
//
// The classifier skips leading whitespace, "--" and "#" line comments
// and "/* */" block comments, and resolves WITH [RECURSIVE] prefixes by
// scanning past the CTE definitions at parenthesis depth zero. It never
// returns an error; unclassifiable input yields KindUnknown.
//
// # Instrumentation
//
// StatsDriver records per-kind statement counts and detects slow
// statements; DebugDriver logs every statement through log/slog:
//
//	drv := sql.NewStatsDriver(base,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowStatementLog(),
//	)
package sql
