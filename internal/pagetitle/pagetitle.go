// Package pagetitle looks up the <title> of a web page.
package pagetitle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoTitle is returned when the page has no usable <title>.
var ErrNoTitle = errors.New("page has no title")

const (
	maxBodyBytes = 1 << 20
	maxRedirects = 10
	userAgent    = "bmsync/1.0 (+title lookup)"
)

// Fetcher fetches page titles. The zero value is not usable; use New.
type Fetcher struct {
	client *http.Client
}

// New creates a Fetcher whose requests give up after timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Fetch returns the trimmed, whitespace-collapsed title of rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.New(Describe(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch title: %s", http.StatusText(resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", ErrNoTitle
	}

	return ParseTitle(io.LimitReader(resp.Body, maxBodyBytes))
}

// ParseTitle scans an HTML document for the first <title> element. It stops
// at the start of <body> since titles never appear there.
func ParseTitle(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inTitle := false
	var text strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			if inTitle {
				return finish(text.String())
			}
			return "", ErrNoTitle

		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = true
			case atom.Body:
				return "", ErrNoTitle
			}

		case html.TextToken:
			if inTitle {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && atom.Lookup(name) == atom.Title {
				return finish(text.String())
			}
		}
	}
}

func finish(raw string) (string, error) {
	title := strings.Join(strings.Fields(raw), " ")
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

// Describe turns verbose transport errors into short readable text.
func Describe(err error) string {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return err.Error()
	}
}
