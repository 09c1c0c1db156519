package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kincraig/wanderlog/internal/errs"
)

// maxUploadBytes caps photo uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// handlePhotoUpload stores a multipart photo and returns its presigned URL.
// Form fields: "photo" (or "file") for the content, optional "folder".
func (s *Server) handlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, errs.HTTPStatus(errStorageUnavailable), map[string]any{
			"success": false,
			"error":   errStorageUnavailable.Message,
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "malformed multipart form: " + err.Error(),
		})
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "missing file field",
		})
		return
	}
	defer file.Close()

	up, err := s.store.Upload(
		r.Context(),
		file,
		header.Size,
		header.Filename,
		header.Header.Get("Content-Type"),
		r.FormValue("folder"),
	)
	if err != nil {
		respondJSON(w, errs.HTTPStatus(err), map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"url":      up.URL,
		"fileName": up.Key,
	})
}

// handleStorageStatus reports whether object storage is configured and
// reachable.
func (s *Server) handleStorageStatus(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"configured": false,
			"message":    "object storage is not configured",
		})
		return
	}

	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"configured": true,
			"connected":  false,
			"message":    err.Error(),
			"endpoint":   s.store.Endpoint(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"configured": true,
		"connected":  true,
		"message":    "object storage connection healthy",
		"endpoint":   s.store.Endpoint(),
	})
}

// handleStorageURL issues a presigned URL for an existing object.
// The object key is the wildcard path; ?expiry= overrides the 7-day default,
// in seconds.
func (s *Server) handleStorageURL(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, errStorageUnavailable)
		return
	}

	key := chi.URLParam(r, "*")
	if key == "" {
		respondError(w, errs.New(errs.ErrKindInvalidInput, "file name is required"))
		return
	}

	var expiry time.Duration
	if raw := r.URL.Query().Get("expiry"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			respondError(w, errs.New(errs.ErrKindInvalidInput, "expiry must be a positive number of seconds"))
			return
		}
		expiry = time.Duration(seconds) * time.Second
	}

	url, err := s.store.URL(r.Context(), key, expiry)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"url": url})
}

// handleStorageDelete removes an object by key.
func (s *Server) handleStorageDelete(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, errStorageUnavailable)
		return
	}

	key := chi.URLParam(r, "*")
	if key == "" {
		respondError(w, errs.New(errs.ErrKindInvalidInput, "file name is required"))
		return
	}

	if ok := s.store.Delete(r.Context(), key); !ok {
		respondJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "file could not be deleted",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleStorageList returns the keys under ?prefix=. A backend fault yields
// an empty list, not an error.
func (s *Server) handleStorageList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, errStorageUnavailable)
		return
	}

	files := s.store.List(r.Context(), r.URL.Query().Get("prefix"))
	respondJSON(w, http.StatusOK, map[string]any{"files": files})
}
