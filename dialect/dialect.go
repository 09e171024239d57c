// Package dialect defines the database abstraction consumed by the DAO
// layer. A dialect.Driver is an opaque handle to a SQL database; the DAO
// packages never touch database/sql directly, which keeps connection
// pooling and transaction management external concerns.
package dialect

import "context"

// Supported dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the two basic database operations.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. For example,
	// INSERT, UPDATE or DELETE. It scans the result into v, which is
	// expected to be either nil or a *sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows, typically a SELECT,
	// or an INSERT/UPDATE with a RETURNING clause. It scans the result
	// into v, which is expected to be a *sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all database operations used by the
// DAO layer.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed
	// or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// NopTx returns a Tx with a no-op Commit / Rollback operations.
func NopTx(d Driver) Tx {
	return nopTx{d}
}
