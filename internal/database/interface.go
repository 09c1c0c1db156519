package database

import "context"

// DB is the contract the executor needs from a database driver.
// Layers above this package talk only to this interface — they never
// import the postgres package directly.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Query executes a SQL statement that returns rows.
	// Every statement the executor builds returns rows (writes carry
	// RETURNING *), so this is the single execution path.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// ListTables returns all user-defined table names in the public schema.
	ListTables(ctx context.Context) ([]string, error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}
