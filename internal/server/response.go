package server

import (
	"encoding/json"
	"net/http"

	"github.com/kincraig/wanderlog/internal/errs"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError writes the uniform {data: null, error: …} failure shape,
// with the status derived from the error's kind.
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, errs.HTTPStatus(err), map[string]any{
		"data":  nil,
		"error": err.Error(),
	})
}

// errDatabaseUnavailable and errStorageUnavailable are the capability-check
// failures handlers return when a backing service is not configured.
var (
	errDatabaseUnavailable = errs.New(errs.ErrKindUnavailable, "database is not configured")
	errStorageUnavailable  = errs.New(errs.ErrKindUnavailable, "object storage is not configured")
)
