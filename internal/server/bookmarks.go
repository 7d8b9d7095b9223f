package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/pager"
	"github.com/nikbrunner/bmsync/internal/server/mw"
	"github.com/nikbrunner/bmsync/internal/storage"
)

const (
	maxLimit    = 100
	maxBodySize = 1 << 20
)

// createRequest is the POST body. The server assigns the ID. CreatedAt is
// only sent by imports; interactive adds are stamped with server time so
// ordering never depends on a client clock.
type createRequest struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListBookmarks serves GET /api/bookmarks?offset=&limit=.
func ListBookmarks(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := mw.UserFrom(r.Context())

		offset, err := intParam(r, "offset", 0)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		limit, err := intParam(r, "limit", pager.PageSize)
		if err != nil || limit < 1 || limit > maxLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}

		page, err := d.Bookmarks.Query(r.Context(), storage.Query{UserID: user.ID, Offset: offset, Limit: limit})
		if err != nil {
			d.Logger.Error("list bookmarks failed", logger.String("user_id", user.ID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load bookmarks")
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// CreateBookmark serves POST /api/bookmarks.
func CreateBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := mw.UserFrom(r.Context())

		var req createRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := model.ValidateURL(req.URL); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		b := model.NewBookmark(model.NewBookmarkParams{UserID: user.ID, Title: req.Title, URL: req.URL})
		if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
			b.CreatedAt = req.CreatedAt.UTC()
		}

		if err := d.Bookmarks.Insert(r.Context(), b); err != nil {
			if errors.Is(err, model.ErrInvalidURL) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			d.Logger.Error("create bookmark failed", logger.String("user_id", user.ID), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to add bookmark")
			return
		}

		writeJSON(w, http.StatusCreated, b)
	}
}

// DeleteBookmark serves DELETE /api/bookmarks/{id}.
func DeleteBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := mw.UserFrom(r.Context())
		id := chi.URLParam(r, "id")

		if err := d.Bookmarks.Delete(r.Context(), user.ID, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, storage.ErrNotFound.Error())
				return
			}
			d.Logger.Error("delete bookmark failed",
				logger.String("user_id", user.ID),
				logger.String("id", id),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete bookmark")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
