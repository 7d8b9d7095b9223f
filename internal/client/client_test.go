package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/auth"
	"github.com/nikbrunner/bmsync/internal/bookmarks"
	"github.com/nikbrunner/bmsync/internal/client"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/server"
	"github.com/nikbrunner/bmsync/internal/storage"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", auth.ErrNotSignedIn }

// newClient runs a real server over an embedded store.
func newClient(t *testing.T, token client.TokenSource) *client.Client {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "bookmarks.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(server.Router(server.Deps{
		Bookmarks: bookmarks.NewService(bookmarks.ServiceParams{Store: store}),
		Verifier:  auth.StaticVerifier{"t1": "u1"},
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(client.Params{BaseURL: srv.URL + "/", Tokens: token})
	assert.NilError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := client.New(client.Params{BaseURL: "localhost"})
	assert.ErrorContains(t, err, "invalid server url")
}

func TestClient_RoundTrip(t *testing.T) {
	c := newClient(t, staticToken("t1"))
	ctx := context.Background()

	assert.NilError(t, c.Ping(ctx))

	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.NilError(t, c.ImportBookmark(ctx, model.Bookmark{Title: "Example", URL: "https://example.com", CreatedAt: created}))
	assert.NilError(t, c.Insert(ctx, model.Bookmark{Title: "Newer", URL: "https://newer.dev"}))

	page, err := c.Query(ctx, storage.Query{Offset: 0, Limit: 20})
	assert.NilError(t, err)
	assert.Equal(t, page.Total, 2)
	assert.Equal(t, page.Records[0].Title, "Newer")
	assert.Equal(t, page.Records[1].Title, "Example")
	assert.Assert(t, page.Records[1].CreatedAt.Equal(created))
	assert.Equal(t, page.Records[1].UserID, "u1")

	assert.NilError(t, c.Delete(ctx, "u1", page.Records[1].ID))
	page, err = c.Query(ctx, storage.Query{Limit: 20})
	assert.NilError(t, err)
	assert.Equal(t, page.Total, 1)
}

func TestClient_InsertIgnoresClientClock(t *testing.T) {
	c := newClient(t, staticToken("t1"))
	ctx := context.Background()

	assert.NilError(t, c.Insert(ctx, model.Bookmark{Title: "First", URL: "https://first.dev"}))

	// A client whose clock runs behind still gets its new record on top.
	late := model.NewBookmark(model.NewBookmarkParams{UserID: "u1", Title: "Second", URL: "https://second.dev"})
	late.CreatedAt = time.Now().Add(-10 * time.Minute)
	assert.NilError(t, c.Insert(ctx, late))

	page, err := c.Query(ctx, storage.Query{Limit: 20})
	assert.NilError(t, err)
	assert.Equal(t, page.Records[0].Title, "Second")
	assert.Assert(t, page.Records[0].ID != late.ID)
}

func TestClient_DeleteMissing(t *testing.T) {
	c := newClient(t, staticToken("t1"))

	err := c.Delete(context.Background(), "u1", "missing")
	assert.Assert(t, errors.Is(err, storage.ErrNotFound))
	assert.Equal(t, err.Error(), storage.ErrNotFound.Error())
}

func TestClient_InvalidURLIsVerbatim(t *testing.T) {
	c := newClient(t, staticToken("t1"))

	err := c.Insert(context.Background(), model.Bookmark{Title: "x", URL: "nope"})
	assert.ErrorIs(t, err, model.ErrInvalidURL)
	assert.Equal(t, err.Error(), "please enter a valid URL")
}

func TestClient_Unauthorized(t *testing.T) {
	c := newClient(t, staticToken("wrong"))

	_, err := c.Query(context.Background(), storage.Query{Limit: 20})
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestClient_TokenSourceFails(t *testing.T) {
	c := newClient(t, failingToken{})

	_, err := c.Query(context.Background(), storage.Query{Limit: 20})
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestClient_ServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := client.New(client.Params{BaseURL: srv.URL})
	assert.NilError(t, err)

	_, err = c.Query(context.Background(), storage.Query{Limit: 20})
	assert.ErrorIs(t, err, client.ErrRequest)
	assert.ErrorContains(t, err, "502")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := client.New(client.Params{BaseURL: url, Timeout: time.Second})
	assert.NilError(t, err)

	_, err = c.Query(context.Background(), storage.Query{Limit: 20})
	assert.ErrorIs(t, err, client.ErrRequest)
}
