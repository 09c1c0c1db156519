package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kincraig/wanderlog/internal/database"
	"github.com/kincraig/wanderlog/internal/errs"
)

// queryRequest is the wire form of one database operation, decoded straight
// into a database.Query via explicit named fields.
type queryRequest struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	Columns   []string        `json:"columns"`
	Filters   []filterSpec    `json:"filters"`
	Order     *orderSpec      `json:"order"`
	Limit     *int            `json:"limit"`
	Range     *rangeSpec      `json:"range"`
	Payload   json.RawMessage `json:"payload"`
	Count     bool            `json:"count"`
	Head      bool            `json:"head"`
	Single    bool            `json:"single"`
}

type filterSpec struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type orderSpec struct {
	Column    string `json:"column"`
	Ascending *bool  `json:"ascending"` // default true
}

type rangeSpec struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// toQuery validates the request and populates the descriptor.
func (req *queryRequest) toQuery() (*database.Query, error) {
	op, err := database.ParseOperation(req.Operation)
	if err != nil {
		return nil, err
	}

	q := &database.Query{
		Table:     req.Table,
		Operation: op,
		Columns:   req.Columns,
		Count:     req.Count,
		Head:      req.Head,
		Single:    req.Single,
		Limit:     req.Limit,
	}

	for _, f := range req.Filters {
		q.Predicates = append(q.Predicates, database.Predicate{
			Column:   f.Column,
			Operator: f.Operator,
			Value:    normalizeFilterValue(f.Operator, f.Value),
		})
	}

	if req.Order != nil {
		descending := req.Order.Ascending != nil && !*req.Order.Ascending
		q.Order = &database.Order{Column: req.Order.Column, Descending: descending}
	}

	// Range derives limit/offset from the inclusive window, overwriting
	// any prior limit.
	if req.Range != nil {
		if req.Range.To < req.Range.From || req.Range.From < 0 {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("invalid range [%d, %d]", req.Range.From, req.Range.To))
		}
		limit := req.Range.To - req.Range.From + 1
		offset := req.Range.From
		q.Limit = &limit
		q.Offset = &offset
	}

	if len(req.Payload) > 0 {
		records, err := decodePayload(req.Payload)
		if err != nil {
			return nil, err
		}
		q.Records = records
	}

	return q, nil
}

// decodePayload accepts a single JSON object or an array of objects.
func decodePayload(raw json.RawMessage) ([]map[string]any, error) {
	var many []map[string]any
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	var one map[string]any
	if err := json.Unmarshal(raw, &one); err == nil {
		return []map[string]any{one}, nil
	}

	return nil, errs.New(errs.ErrKindInvalidInput, "payload must be an object or an array of objects")
}

// normalizeFilterValue converts the JSON decoding of an "in" value ([]any
// arrives as-is, a scalar is lifted to a one-element set) so the builder
// always binds a slice.
func normalizeFilterValue(operator string, value any) any {
	if operator != "in" {
		return value
	}
	if _, ok := value.([]any); ok {
		return value
	}
	return []any{value}
}

// handleDatabaseQuery executes one table operation described by the body.
func (s *Server) handleDatabaseQuery(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondError(w, errDatabaseUnavailable)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.Wrap(errs.ErrKindInvalidInput, "malformed request body", err))
		return
	}

	q, err := req.toQuery()
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := s.db.Execute(r.Context(), q)
	if err != nil {
		respondError(w, err)
		return
	}

	body := map[string]any{"error": nil}
	switch {
	case res.Count != nil:
		body["data"] = nil
		body["count"] = *res.Count
	case q.Single:
		body["data"] = res.Row // null when no row matched
	default:
		body["data"] = res.Rows
	}
	respondJSON(w, http.StatusOK, body)
}

type rpcRequest struct {
	FunctionName string         `json:"functionName"`
	Params       map[string]any `json:"params"`
}

// handleDatabaseRPC invokes a named stored procedure.
func (s *Server) handleDatabaseRPC(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondError(w, errDatabaseUnavailable)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.Wrap(errs.ErrKindInvalidInput, "malformed request body", err))
		return
	}
	if req.FunctionName == "" {
		respondError(w, errs.New(errs.ErrKindInvalidInput, "functionName is required"))
		return
	}

	rows, err := s.db.CallFunction(r.Context(), req.FunctionName, req.Params)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"data": rows, "error": nil})
}

// handleDatabaseStatus reports whether the database is configured and
// reachable.
func (s *Server) handleDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"configured": false,
			"message":    "database is not configured",
		})
		return
	}

	if err := s.db.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"configured": true,
			"connected":  false,
			"message":    err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"configured": true,
		"connected":  true,
		"message":    "database connection healthy",
	})
}

// handleDatabaseTables lists the journal schema's tables.
func (s *Server) handleDatabaseTables(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondError(w, errDatabaseUnavailable)
		return
	}

	tables, err := s.db.ListTables(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"tables": tables, "error": nil})
}
