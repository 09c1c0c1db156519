package database

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kincraig/wanderlog/internal/errs"
)

var placeholderRe = regexp.MustCompile(`\$\d+`)

// requireParamParity asserts the positional-binding invariant: the number of
// placeholders in the SQL text equals the length of the argument list, and
// the placeholders are numbered 1..n without gaps.
func requireParamParity(t *testing.T, sql string, args []any) {
	t.Helper()
	found := placeholderRe.FindAllString(sql, -1)
	require.Len(t, found, len(args), "placeholder count must match argument count in %q", sql)

	seen := make(map[string]bool)
	for _, ph := range found {
		seen[ph] = true
	}
	for i := 1; i <= len(args); i++ {
		assert.True(t, seen[fmt.Sprintf("$%d", i)], "missing $%d in %q", i, sql)
	}
}

func intPtr(n int) *int { return &n }

func TestBuildSelect_Basic(t *testing.T) {
	q := &Query{Table: "journal_entries", Operation: OpSelect}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "journal_entries"`, sql)
	assert.Empty(t, args)
}

func TestBuildSelect_ProjectionAndFilters(t *testing.T) {
	q := &Query{
		Table:     "journal_entries",
		Operation: OpSelect,
		Columns:   []string{"id", "title"},
		Predicates: []Predicate{
			{Column: "location", Operator: "eq", Value: "Skye"},
			{Column: "entry_date", Operator: "gte", Value: "2026-01-01"},
		},
		Order: &Order{Column: "entry_date", Descending: true},
		Limit: intPtr(20),
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id", "title" FROM "journal_entries" WHERE "location" = $1 AND "entry_date" >= $2 ORDER BY "entry_date" DESC LIMIT $3`,
		sql)
	assert.Equal(t, []any{"Skye", "2026-01-01", 20}, args)
	requireParamParity(t, sql, args)
}

func TestBuildSelect_OperatorMapping(t *testing.T) {
	// Each operator name maps to exactly one SQL keyword; in particular
	// "like" must never emit ILIKE and vice versa.
	tests := []struct {
		operator string
		want     string
	}{
		{"eq", `"c" = $1`},
		{"neq", `"c" <> $1`},
		{"gt", `"c" > $1`},
		{"gte", `"c" >= $1`},
		{"lt", `"c" < $1`},
		{"lte", `"c" <= $1`},
		{"like", `"c" LIKE $1`},
		{"ilike", `"c" ILIKE $1`},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			q := &Query{
				Table:      "t",
				Operation:  OpSelect,
				Predicates: []Predicate{{Column: "c", Operator: tt.operator, Value: "v"}},
			}
			sql, args, err := q.Build()
			require.NoError(t, err)
			assert.Contains(t, sql, "WHERE "+tt.want)
			assert.Equal(t, []any{"v"}, args)

			if tt.operator == "like" {
				assert.NotContains(t, sql, "ILIKE")
			}
		})
	}
}

func TestBuildSelect_InFilter(t *testing.T) {
	q := &Query{
		Table:      "castles",
		Operation:  OpSelect,
		Predicates: []Predicate{{Column: "region", Operator: "in", Value: []any{"Highland", "Argyll"}}},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "castles" WHERE "region" = ANY($1)`, sql)
	assert.Equal(t, []any{[]any{"Highland", "Argyll"}}, args)
	requireParamParity(t, sql, args)
}

func TestBuildSelect_IsFilter(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, `"c" IS NULL`},
		{"null string", "null", `"c" IS NULL`},
		{"not null", "not null", `"c" IS NOT NULL`},
		{"not_null", "not_null", `"c" IS NOT NULL`},
		{"true", true, `"c" IS TRUE`},
		{"false", false, `"c" IS FALSE`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &Query{
				Table:      "t",
				Operation:  OpSelect,
				Predicates: []Predicate{{Column: "c", Operator: "is", Value: tt.value}},
			}
			sql, args, err := q.Build()
			require.NoError(t, err)
			assert.Contains(t, sql, tt.want)
			assert.Empty(t, args, "IS never binds a parameter")
		})
	}
}

func TestBuildSelect_IsFilterRejectsArbitraryText(t *testing.T) {
	q := &Query{
		Table:      "t",
		Operation:  OpSelect,
		Predicates: []Predicate{{Column: "c", Operator: "is", Value: "1; DROP TABLE t"}},
	}
	_, _, err := q.Build()
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuildSelect_UnknownOperator(t *testing.T) {
	q := &Query{
		Table:      "t",
		Operation:  OpSelect,
		Predicates: []Predicate{{Column: "c", Operator: "matches", Value: "v"}},
	}
	_, _, err := q.Build()
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuildSelect_RepeatedColumnAccumulates(t *testing.T) {
	// Two filters on the same column are two ANDed predicates, not an
	// overwrite.
	q := &Query{
		Table:     "journal_entries",
		Operation: OpSelect,
		Predicates: []Predicate{
			{Column: "entry_date", Operator: "gte", Value: "2026-01-01"},
			{Column: "entry_date", Operator: "lte", Value: "2026-12-31"},
		},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Contains(t, sql, `"entry_date" >= $1 AND "entry_date" <= $2`)
	assert.Len(t, args, 2)
}

func TestBuildSelect_CountIgnoresWindowing(t *testing.T) {
	q := &Query{
		Table:      "journal_entries",
		Operation:  OpSelect,
		Count:      true,
		Predicates: []Predicate{{Column: "location", Operator: "eq", Value: "Skye"}},
		Order:      &Order{Column: "id"},
		Limit:      intPtr(5),
		Offset:     intPtr(10),
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "journal_entries" WHERE "location" = $1`, sql)
	assert.Equal(t, []any{"Skye"}, args)
}

func TestBuildSelect_RejectsPayload(t *testing.T) {
	q := &Query{
		Table:     "t",
		Operation: OpSelect,
		Records:   []map[string]any{{"a": 1}},
	}
	_, _, err := q.Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuildSelect_IdentifierQuoting(t *testing.T) {
	q := &Query{
		Table:      `weird"table`,
		Operation:  OpSelect,
		Predicates: []Predicate{{Column: `col"umn`, Operator: "eq", Value: 1}},
	}
	sql, _, err := q.Build()
	require.NoError(t, err)
	assert.Contains(t, sql, `"weird""table"`)
	assert.Contains(t, sql, `"col""umn"`)
}

func TestBuildInsert_Single(t *testing.T) {
	q := &Query{
		Table:     "journal_entries",
		Operation: OpInsert,
		Records: []map[string]any{
			{"title": "Day one", "location": "Oban", "content": "Ferry over"},
		},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	// Columns are the first record's keys, sorted for determinism.
	assert.Equal(t,
		`INSERT INTO "journal_entries" ("content", "location", "title") VALUES ($1, $2, $3) RETURNING *`,
		sql)
	assert.Equal(t, []any{"Ferry over", "Oban", "Day one"}, args)
	requireParamParity(t, sql, args)
}

func TestBuildInsert_Batch(t *testing.T) {
	q := &Query{
		Table:     "wishlist_items",
		Operation: OpInsert,
		Records: []map[string]any{
			{"title": "Staffa", "notes": "boat trip"},
			{"title": "Cairngorms"}, // missing key binds NULL
		},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "wishlist_items" ("notes", "title") VALUES ($1, $2), ($3, $4) RETURNING *`,
		sql)
	assert.Equal(t, []any{"boat trip", "Staffa", nil, "Cairngorms"}, args)
	requireParamParity(t, sql, args)
}

func TestBuildInsert_RequiresPayload(t *testing.T) {
	q := &Query{Table: "t", Operation: OpInsert}
	_, _, err := q.Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuildUpdate(t *testing.T) {
	q := &Query{
		Table:     "journal_entries",
		Operation: OpUpdate,
		Records:   []map[string]any{{"title": "Renamed", "location": "Mull"}},
		Predicates: []Predicate{
			{Column: "id", Operator: "eq", Value: 7},
		},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "journal_entries" SET "location" = $1, "title" = $2 WHERE "id" = $3 RETURNING *`,
		sql)
	assert.Equal(t, []any{"Mull", "Renamed", 7}, args)
	requireParamParity(t, sql, args)
}

func TestBuildUpdate_RequiresSingleValueMap(t *testing.T) {
	q := &Query{Table: "t", Operation: OpUpdate}
	_, _, err := q.Build()
	assert.True(t, errs.IsInvalidInput(err))

	q.Records = []map[string]any{{"a": 1}, {"a": 2}}
	_, _, err = q.Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuildDelete(t *testing.T) {
	q := &Query{
		Table:      "journal_comments",
		Operation:  OpDelete,
		Predicates: []Predicate{{Column: "entry_id", Operator: "eq", Value: 3}},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "journal_comments" WHERE "entry_id" = $1 RETURNING *`, sql)
	assert.Equal(t, []any{3}, args)
}

func TestBuildDelete_RejectsPayload(t *testing.T) {
	q := &Query{Table: "t", Operation: OpDelete, Records: []map[string]any{{"a": 1}}}
	_, _, err := q.Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuild_MissingTable(t *testing.T) {
	q := &Query{Operation: OpSelect}
	_, _, err := q.Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestParseOperation(t *testing.T) {
	for _, name := range []string{"select", "INSERT", "Update", "delete"} {
		op, err := ParseOperation(name)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(name), op.String())
	}

	_, err := ParseOperation("upsert")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBuild_ValuesNeverInterpolated(t *testing.T) {
	// A hostile value must never reach the SQL text.
	hostile := `'; DROP TABLE journal_entries; --`
	q := &Query{
		Table:      "journal_entries",
		Operation:  OpSelect,
		Predicates: []Predicate{{Column: "title", Operator: "eq", Value: hostile}},
	}

	sql, args, err := q.Build()
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP TABLE")
	assert.Equal(t, []any{hostile}, args)
}
