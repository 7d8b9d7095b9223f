package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/server"
	"github.com/nikbrunner/bmsync/internal/storage"
)

type fixture struct {
	srv *httptest.Server
	svc *bookmarks.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "bookmarks.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := bookmarks.NewService(bookmarks.ServiceParams{Store: store})
	srv := httptest.NewServer(server.Router(server.Deps{
		Bookmarks: svc,
		Verifier:  auth.StaticVerifier{"alice-token": "alice", "bob-token": "bob"},
		StartTime: time.Now(),
		Version:   "test",
	}))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, svc: svc}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	assert.NilError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	assert.NilError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	assert.NilError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) seed(t *testing.T, userID string, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		assert.NilError(t, f.svc.Insert(context.Background(), model.Bookmark{
			ID:        fmt.Sprintf("%s-%02d", userID, i),
			UserID:    userID,
			Title:     fmt.Sprintf("Bookmark %d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, body["status"], "ok")
	assert.Equal(t, body["version"], "test")
}

func TestReadyz_NotReady(t *testing.T) {
	srv := httptest.NewServer(server.Router(server.Deps{
		Ready: func() error { return errors.New("redis down") },
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusServiceUnavailable)
}

func TestAPI_RequiresToken(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"unknown token", "mallory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, "/api/bookmarks", tt.token, "")
			assert.Equal(t, resp.StatusCode, http.StatusUnauthorized)
			body := decode[map[string]string](t, resp)
			assert.Assert(t, body["error"] != "")
		})
	}
}

func TestListBookmarks_Paginates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", 25)
	f.seed(t, "bob", 3)

	resp := f.do(t, http.MethodGet, "/api/bookmarks?offset=0&limit=20", "alice-token", "")
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	first := decode[model.Page](t, resp)
	assert.Equal(t, first.Total, 25)
	assert.Equal(t, len(first.Records), 20)
	assert.Equal(t, first.Records[0].ID, "alice-24")

	resp = f.do(t, http.MethodGet, "/api/bookmarks?offset=20&limit=20", "alice-token", "")
	second := decode[model.Page](t, resp)
	assert.Equal(t, len(second.Records), 5)
	assert.Equal(t, second.Records[4].ID, "alice-00")
}

func TestListBookmarks_DefaultLimit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", 30)

	resp := f.do(t, http.MethodGet, "/api/bookmarks", "alice-token", "")
	page := decode[model.Page](t, resp)
	assert.Equal(t, len(page.Records), 20)
}

func TestListBookmarks_BadParams(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"offset=-1", "offset=x", "limit=0", "limit=101"} {
		t.Run(q, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, "/api/bookmarks?"+q, "alice-token", "")
			assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
		})
	}
}

func TestCreateBookmark(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/bookmarks", "alice-token", `{"title":"Example","url":"https://example.com"}`)
	assert.Equal(t, resp.StatusCode, http.StatusCreated)

	created := decode[model.Bookmark](t, resp)
	assert.Equal(t, created.UserID, "alice")
	assert.Equal(t, created.Title, "Example")
	assert.Assert(t, created.ID != "")

	page, err := f.svc.Query(context.Background(), storage.Query{UserID: "alice"})
	assert.NilError(t, err)
	assert.Equal(t, page.Total, 1)
}

func TestCreateBookmark_StampsServerTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NilError(t, f.svc.Insert(ctx, model.Bookmark{
		ID:        "existing",
		UserID:    "alice",
		Title:     "Existing",
		URL:       "https://existing.dev",
		CreatedAt: time.Now(),
	}))

	resp := f.do(t, http.MethodPost, "/api/bookmarks", "alice-token", `{"title":"New","url":"https://new.dev"}`)
	assert.Equal(t, resp.StatusCode, http.StatusCreated)
	created := decode[model.Bookmark](t, resp)

	page, err := f.svc.Query(ctx, storage.Query{UserID: "alice", Limit: 20})
	assert.NilError(t, err)
	assert.Equal(t, page.Records[0].ID, created.ID)
}

func TestCreateBookmark_KeepsImportedTime(t *testing.T) {
	f := newFixture(t)

	body := `{"title":"A","url":"https://a.dev","createdAt":"2024-05-01T10:00:00Z"}`
	resp := f.do(t, http.MethodPost, "/api/bookmarks", "alice-token", body)
	assert.Equal(t, resp.StatusCode, http.StatusCreated)

	created := decode[model.Bookmark](t, resp)
	assert.Assert(t, created.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestCreateBookmark_RejectsClientID(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", 1)

	// Taken and free IDs get the same answer.
	for _, id := range []string{"alice-00", "unused"} {
		body := fmt.Sprintf(`{"id":%q,"title":"B","url":"https://b.dev"}`, id)
		resp := f.do(t, http.MethodPost, "/api/bookmarks", "bob-token", body)
		assert.Equal(t, resp.StatusCode, http.StatusBadRequest, id)
		got := decode[map[string]string](t, resp)
		assert.Equal(t, got["error"], "invalid request body", id)
	}

	page, err := f.svc.Query(context.Background(), storage.Query{UserID: "bob"})
	assert.NilError(t, err)
	assert.Equal(t, page.Total, 0)
}

func TestCreateBookmark_InvalidURL(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/bookmarks", "alice-token", `{"title":"x","url":"not a url"}`)
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, body["error"], model.ErrInvalidURL.Error())
}

func TestCreateBookmark_BadBody(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/bookmarks", "alice-token", `{"title":`)
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)

	resp = f.do(t, http.MethodPost, "/api/bookmarks", "alice-token", `{"url":"https://a.dev","userId":"bob"}`)
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestDeleteBookmark(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", 2)

	resp := f.do(t, http.MethodDelete, "/api/bookmarks/alice-01", "alice-token", "")
	assert.Equal(t, resp.StatusCode, http.StatusNoContent)

	page, err := f.svc.Query(context.Background(), storage.Query{UserID: "alice"})
	assert.NilError(t, err)
	assert.Equal(t, page.Total, 1)
}

func TestDeleteBookmark_OtherUsersRecord(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alice", 1)

	resp := f.do(t, http.MethodDelete, "/api/bookmarks/alice-00", "bob-token", "")
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)

	page, err := f.svc.Query(context.Background(), storage.Query{UserID: "alice"})
	assert.NilError(t, err)
	assert.Equal(t, page.Total, 1)
}
