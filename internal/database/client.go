package database

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kincraig/wanderlog/internal/errs"
)

// Client is the table facade and query executor. It owns the per-query
// timeout and is safe for concurrent use; each call chain builds its own
// Query, executes it once, and discards it.
type Client struct {
	db      DB
	timeout time.Duration
}

// NewClient wraps a DB with an executor. queryTimeout bounds every statement;
// zero disables the bound.
func NewClient(db DB, queryTimeout time.Duration) *Client {
	return &Client{db: db, timeout: queryTimeout}
}

// Ping reports whether the underlying database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.db.Ping(ctx)
}

// ListTables returns the user-defined tables in the public schema.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.db.ListTables(ctx)
}

// From starts a fluent Request scoped to one table.
func (c *Client) From(table string) *Request {
	return &Request{client: c, query: Query{Table: table}}
}

// Result is the normalized outcome of one executed Query.
type Result struct {
	// Rows holds the result rows (or the rows affected by a write, via
	// RETURNING *). Nil for count/head queries.
	Rows []map[string]any

	// Row holds the first row for single-result queries; nil when no row
	// matched. Set only when Query.Single is true.
	Row map[string]any

	// Count holds the numeric result of a count/head query.
	Count *int64
}

// Execute builds and runs q, normalizing the result shape. All faults are
// returned as *errs.Error; nothing escapes as a panic.
func (c *Client) Execute(ctx context.Context, q *Query) (*Result, error) {
	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	if q.Count || q.Head {
		var count int64
		if err := c.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "count query failed", err)
		}
		return &Result{Count: &count}, nil
	}

	rows, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	scanned, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: scanned}
	if q.Single {
		res.Rows = nil
		if len(scanned) > 0 {
			res.Row = scanned[0]
		}
	}
	return res, nil
}

// identRe matches the function names CallFunction accepts. Stored procedure
// names come from the request body, so they are validated rather than quoted.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CallFunction invokes a stored procedure by name using Postgres named
// argument syntax: SELECT * FROM "fn"(arg => $1, …). Parameter order is
// irrelevant to Postgres, so keys are sorted only for determinism.
func (c *Client) CallFunction(ctx context.Context, name string, params map[string]any) ([]map[string]any, error) {
	if !identRe.MatchString(name) {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("invalid function name %q", name))
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if !identRe.MatchString(k) {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("invalid parameter name %q", k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var args []any
	named := make([]string, len(keys))
	for i, k := range keys {
		named[i] = fmt.Sprintf("%s => %s", k, placeholder(i+1))
		args = append(args, params[k])
	}

	sql := fmt.Sprintf("SELECT * FROM %s(%s)", quoteIdent(name), strings.Join(named, ", "))

	ctx, cancel := c.bound(ctx)
	defer cancel()

	rows, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return ScanRows(rows)
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Request accumulates one Query through chained calls, then executes it.
// Filter methods append — filtering the same column twice yields two ANDed
// predicates. Order replaces any previous ordering; only one ORDER BY clause
// is supported.
type Request struct {
	client *Client
	query  Query
}

// Select marks the request as a SELECT, optionally restricting the projection.
func (r *Request) Select(columns ...string) *Request {
	r.query.Operation = OpSelect
	if len(columns) > 0 {
		r.query.Columns = columns
	}
	return r
}

// Insert marks the request as an INSERT of one or more records.
func (r *Request) Insert(records ...map[string]any) *Request {
	r.query.Operation = OpInsert
	r.query.Records = records
	return r
}

// Update marks the request as an UPDATE applying the given values.
func (r *Request) Update(values map[string]any) *Request {
	r.query.Operation = OpUpdate
	r.query.Records = []map[string]any{values}
	return r
}

// Delete marks the request as a DELETE.
func (r *Request) Delete() *Request {
	r.query.Operation = OpDelete
	return r
}

func (r *Request) filter(column, op string, value any) *Request {
	r.query.Predicates = append(r.query.Predicates, Predicate{Column: column, Operator: op, Value: value})
	return r
}

func (r *Request) Eq(column string, value any) *Request  { return r.filter(column, "eq", value) }
func (r *Request) Neq(column string, value any) *Request { return r.filter(column, "neq", value) }
func (r *Request) Gt(column string, value any) *Request  { return r.filter(column, "gt", value) }
func (r *Request) Gte(column string, value any) *Request { return r.filter(column, "gte", value) }
func (r *Request) Lt(column string, value any) *Request  { return r.filter(column, "lt", value) }
func (r *Request) Lte(column string, value any) *Request { return r.filter(column, "lte", value) }

// Like adds a case-sensitive pattern match.
func (r *Request) Like(column, pattern string) *Request { return r.filter(column, "like", pattern) }

// ILike adds a case-insensitive pattern match.
func (r *Request) ILike(column, pattern string) *Request { return r.filter(column, "ilike", pattern) }

// In adds a set-membership filter.
func (r *Request) In(column string, values []any) *Request { return r.filter(column, "in", values) }

// Is adds a null/boolean check (value: nil, "not null", true, false).
func (r *Request) Is(column string, value any) *Request { return r.filter(column, "is", value) }

// Order sets the ORDER BY clause, replacing any previous one.
func (r *Request) Order(column string, descending bool) *Request {
	r.query.Order = &Order{Column: column, Descending: descending}
	return r
}

// Limit caps the number of returned rows.
func (r *Request) Limit(n int) *Request {
	r.query.Limit = &n
	return r
}

// Range selects the inclusive zero-based row window [from, to], overwriting
// any prior limit.
func (r *Request) Range(from, to int) *Request {
	limit := to - from + 1
	r.query.Limit = &limit
	r.query.Offset = &from
	return r
}

// Single requests only the first matching row.
func (r *Request) Single() *Request {
	r.query.Single = true
	return r
}

// Count requests the matching row count instead of rows.
func (r *Request) Count() *Request {
	r.query.Count = true
	return r
}

// Head requests a count-only result with no row data.
func (r *Request) Head() *Request {
	r.query.Count = true
	r.query.Head = true
	return r
}

// Execute runs the accumulated query.
func (r *Request) Execute(ctx context.Context) (*Result, error) {
	return r.client.Execute(ctx, &r.query)
}
