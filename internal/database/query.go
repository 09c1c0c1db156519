package database

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kincraig/wanderlog/internal/errs"
)

// Operation is the kind of SQL statement a Query describes.
// Exactly one operation applies per Query.
type Operation int

const (
	OpSelect Operation = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseOperation maps the wire-level operation name to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(s) {
	case "select":
		return OpSelect, nil
	case "insert":
		return OpInsert, nil
	case "update":
		return OpUpdate, nil
	case "delete":
		return OpDelete, nil
	default:
		return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown operation %q", s))
	}
}

// sqlOps maps filter operator names to the SQL keyword they emit.
// The operator position cannot be parameterized, so anything outside this
// allowlist is rejected before SQL assembly.
var sqlOps = map[string]string{
	"eq":    "=",
	"neq":   "<>",
	"gt":    ">",
	"gte":   ">=",
	"lt":    "<",
	"lte":   "<=",
	"like":  "LIKE",
	"ilike": "ILIKE",
	"in":    "IN",
	"is":    "IS",
}

// Predicate is a single column/operator/value filter condition.
// All predicates on a Query are combined with AND.
type Predicate struct {
	Column   string
	Operator string
	Value    any
}

// Order describes the single ORDER BY clause a Query may carry.
type Order struct {
	Column     string
	Descending bool
}

// Query is the full description of one database operation before execution.
// It is populated either by the fluent Request builder or directly from a
// decoded HTTP request body, then handed to Client.Execute exactly once.
//
// Predicates accumulate: filtering the same column twice produces two ANDed
// conditions, never an overwrite.
type Query struct {
	Table      string
	Operation  Operation
	Columns    []string
	Predicates []Predicate
	Order      *Order
	Limit      *int
	Offset     *int

	// Records is the payload for INSERT (one or more rows) and UPDATE
	// (exactly one value map). It must be empty for SELECT and DELETE.
	Records []map[string]any

	Count  bool // return COUNT(*) instead of rows
	Head   bool // count only, suppress rows
	Single bool // return the first row only
}

// Build translates the Query into one SQL statement and its ordered argument
// list. Values are always bound parameters; only validated identifiers and
// allowlisted keywords appear in the SQL text.
func (q *Query) Build() (string, []any, error) {
	if q.Table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "query has no table")
	}

	switch q.Operation {
	case OpSelect:
		return q.buildSelect()
	case OpInsert:
		return q.buildInsert()
	case OpUpdate:
		return q.buildUpdate()
	case OpDelete:
		return q.buildDelete()
	default:
		return "", nil, errs.New(errs.ErrKindInvalidInput, "query has no operation")
	}
}

func (q *Query) buildSelect() (string, []any, error) {
	if len(q.Records) > 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select does not take a payload")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.Count || q.Head {
		sb.WriteString("COUNT(*)")
	} else if len(q.Columns) > 0 {
		sb.WriteString(quoteIdents(q.Columns))
	} else {
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(q.Table))

	args, err := q.writeWhere(&sb, nil)
	if err != nil {
		return "", nil, err
	}

	// A count query collapses to a single row; ordering and windowing
	// apply only to row-returning selects.
	if !q.Count && !q.Head {
		if q.Order != nil {
			dir := "ASC"
			if q.Order.Descending {
				dir = "DESC"
			}
			fmt.Fprintf(&sb, " ORDER BY %s %s", quoteIdent(q.Order.Column), dir)
		}
		if q.Limit != nil {
			fmt.Fprintf(&sb, " LIMIT %s", placeholder(len(args)+1))
			args = append(args, *q.Limit)
		}
		if q.Offset != nil {
			fmt.Fprintf(&sb, " OFFSET %s", placeholder(len(args)+1))
			args = append(args, *q.Offset)
		}
	}

	return sb.String(), args, nil
}

func (q *Query) buildInsert() (string, []any, error) {
	if len(q.Records) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert requires a payload")
	}

	// Column order is derived from the first record. Sorted for a
	// deterministic statement regardless of map iteration order.
	cols := sortedKeys(q.Records[0])
	if len(cols) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert payload has no columns")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteIdent(q.Table))
	sb.WriteString(" (")
	sb.WriteString(quoteIdents(cols))
	sb.WriteString(") VALUES ")

	var args []any
	tuples := make([]string, len(q.Records))
	for i, rec := range q.Records {
		ph := make([]string, len(cols))
		for j, col := range cols {
			ph[j] = placeholder(len(args) + 1)
			args = append(args, rec[col]) // absent key inserts NULL
		}
		tuples[i] = "(" + strings.Join(ph, ", ") + ")"
	}
	sb.WriteString(strings.Join(tuples, ", "))
	sb.WriteString(" RETURNING *")

	return sb.String(), args, nil
}

func (q *Query) buildUpdate() (string, []any, error) {
	if len(q.Records) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "update requires a payload")
	}
	if len(q.Records) > 1 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "update takes a single value map")
	}

	values := q.Records[0]
	cols := sortedKeys(values)
	if len(cols) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "update payload has no columns")
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(quoteIdent(q.Table))
	sb.WriteString(" SET ")

	var args []any
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = %s", quoteIdent(col), placeholder(len(args)+1))
		args = append(args, values[col])
	}
	sb.WriteString(strings.Join(sets, ", "))

	args, err := q.writeWhere(&sb, args)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(" RETURNING *")

	return sb.String(), args, nil
}

func (q *Query) buildDelete() (string, []any, error) {
	if len(q.Records) > 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "delete does not take a payload")
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(quoteIdent(q.Table))

	args, err := q.writeWhere(&sb, nil)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(" RETURNING *")

	return sb.String(), args, nil
}

// writeWhere appends the WHERE clause for q.Predicates to sb, extending args
// with one bound value per parameterizable predicate.
func (q *Query) writeWhere(sb *strings.Builder, args []any) ([]any, error) {
	if len(q.Predicates) == 0 {
		return args, nil
	}

	parts := make([]string, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		op, ok := sqlOps[strings.ToLower(p.Operator)]
		if !ok {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("unsupported filter operator %q", p.Operator))
		}
		if p.Column == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, "filter has no column")
		}

		switch op {
		case "IN":
			// pgx binds slices natively through = ANY.
			parts = append(parts, fmt.Sprintf("%s = ANY(%s)", quoteIdent(p.Column), placeholder(len(args)+1)))
			args = append(args, p.Value)
		case "IS":
			kw, err := nullCheckKeyword(p.Value)
			if err != nil {
				return nil, err
			}
			parts = append(parts, fmt.Sprintf("%s %s", quoteIdent(p.Column), kw))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %s", quoteIdent(p.Column), op, placeholder(len(args)+1)))
			args = append(args, p.Value)
		}
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(parts, " AND "))
	return args, nil
}

// nullCheckKeyword resolves the value of an "is" filter to a fixed SQL
// keyword. The value never reaches the SQL text itself.
func nullCheckKeyword(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "IS NULL", nil
	case bool:
		if val {
			return "IS TRUE", nil
		}
		return "IS FALSE", nil
	case string:
		switch strings.ToLower(strings.ReplaceAll(val, "_", " ")) {
		case "null":
			return "IS NULL", nil
		case "not null":
			return "IS NOT NULL", nil
		case "true":
			return "IS TRUE", nil
		case "false":
			return "IS FALSE", nil
		}
	}
	return "", errs.New(errs.ErrKindInvalidInput,
		"is filter takes null, not null, true, or false")
}

// placeholder returns the Postgres positional parameter for index idx (1-based).
func placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

// quoteIdent wraps a SQL identifier in double-quotes (ANSI standard).
// This safely handles reserved words and mixed-case names.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
