// Package client talks to a hosted `bmsync serve` instance. Client
// implements bookmarks.Backend so the UI does not care where data lives.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/storage"
)

var (
	// ErrUnauthorized is returned when the server rejects the bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRequest is returned for transport failures and unexpected responses.
	ErrRequest = errors.New("request failed")
)

// APIError is a non-2xx response. Its message is the server's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is maps status codes onto sentinel errors.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusNotFound:
		return target == storage.ErrNotFound
	case http.StatusBadRequest:
		if e.Message == model.ErrInvalidURL.Error() {
			return target == model.ErrInvalidURL
		}
	}
	return target == ErrRequest
}

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP bookmarks backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
}

// Params holds the parameters for creating a Client.
type Params struct {
	BaseURL    string
	Tokens     TokenSource
	Timeout    time.Duration // ignored when HTTPClient is set
	HTTPClient *http.Client
}

// New creates a Client for the server at p.BaseURL.
func New(p Params) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(p.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", p.BaseURL)
	}

	hc := p.HTTPClient
	if hc == nil {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: u, http: hc, tokens: p.Tokens}, nil
}

// Query fetches one page of the signed-in user's bookmarks. The server
// scopes by token, so q.UserID is not sent.
func (c *Client) Query(ctx context.Context, q storage.Query) (model.Page, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var page model.Page
	if err := c.do(ctx, http.MethodGet, "/api/bookmarks?"+params.Encode(), nil, http.StatusOK, &page); err != nil {
		return model.Page{}, err
	}
	if page.Records == nil {
		page.Records = []model.Bookmark{}
	}
	return page, nil
}

type createRequest struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Insert creates b on the server. The server assigns the owner, the ID and
// the creation time, so b.ID and b.CreatedAt are not sent.
func (c *Client) Insert(ctx context.Context, b model.Bookmark) error {
	req := createRequest{Title: b.Title, URL: b.URL}
	return c.do(ctx, http.MethodPost, "/api/bookmarks", req, http.StatusCreated, nil)
}

// ImportBookmark creates b on the server keeping its original creation time.
func (c *Client) ImportBookmark(ctx context.Context, b model.Bookmark) error {
	req := createRequest{Title: b.Title, URL: b.URL}
	if !b.CreatedAt.IsZero() {
		t := b.CreatedAt.UTC()
		req.CreatedAt = &t
	}
	return c.do(ctx, http.MethodPost, "/api/bookmarks", req, http.StatusCreated, nil)
}

// Delete removes the bookmark with the given ID.
func (c *Client) Delete(ctx context.Context, _ string, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// Ping checks that the server answers /healthz.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrRequest, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRequest, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = fmt.Sprintf("server returned %s", resp.Status)
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Error}
}
