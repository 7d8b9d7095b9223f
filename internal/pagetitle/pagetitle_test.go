package pagetitle_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmsync/internal/pagetitle"
)

func TestParseTitle(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    string
		wantErr bool
	}{
		{"simple", `<html><head><title>Example Domain</title></head></html>`, "Example Domain", false},
		{"uppercase tag", `<HTML><HEAD><TITLE>Shouty</TITLE></HEAD>`, "Shouty", false},
		{"entities", `<title>Tom &amp; Jerry &#8211; Home</title>`, "Tom & Jerry – Home", false},
		{"whitespace collapsed", "<title>\n   Spread\n\tOut   </title>", "Spread Out", false},
		{"no title", `<html><head></head><body>hi</body></html>`, "", true},
		{"empty title", `<title>   </title>`, "", true},
		{"title in body ignored", `<html><body><title>Nope</title></body></html>`, "", true},
		{"unterminated", `<title>Cut off`, "Cut off", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pagetitle.ParseTitle(strings.NewReader(tt.doc))
			if tt.wantErr {
				assert.ErrorIs(t, err, pagetitle.ErrNoTitle)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<!doctype html><html><head><title>Go Home</title></head><body></body></html>`)
		case "/moved":
			http.Redirect(w, r, "/page", http.StatusMovedPermanently)
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"title":"not html"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := pagetitle.New(2 * time.Second)
	ctx := context.Background()

	title, err := f.Fetch(ctx, srv.URL+"/page")
	assert.NilError(t, err)
	assert.Equal(t, title, "Go Home")

	title, err = f.Fetch(ctx, srv.URL+"/moved")
	assert.NilError(t, err)
	assert.Equal(t, title, "Go Home")

	_, err = f.Fetch(ctx, srv.URL+"/json")
	assert.ErrorIs(t, err, pagetitle.ErrNoTitle)

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "Not Found")
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := pagetitle.New(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	assert.Error(t, err, "Timeout")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"dial tcp: lookup nope.invalid: no such host", "DNS failure"},
		{"Get x: context deadline exceeded (Client.Timeout exceeded)", "Timeout"},
		{"dial tcp 127.0.0.1:1: connect: connection refused", "Connection refused"},
		{"x509: certificate signed by unknown authority", "TLS/certificate error"},
		{"something odd", "something odd"},
	}
	for _, tt := range tests {
		assert.Equal(t, pagetitle.Describe(errors.New(tt.err)), tt.want)
	}
}
