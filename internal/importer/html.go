package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmsync/internal/model"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML and returns its bookmarks
// as a flat list in document order. Folder headings are ignored. IDs and
// owners are left empty for the caller to assign.
func ParseHTMLBookmarks(r io.Reader) ([]model.Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	bookmarks := []model.Bookmark{}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			href := strings.TrimSpace(getAttr(n, "href"))
			if href == "" {
				// Skip bookmarks without URL
				return
			}

			title := getTextContent(n)
			if title == "" {
				title = href // fallback to URL as title
			}

			createdAt := time.Now().UTC()
			if addDate := getAttr(n, "add_date"); addDate != "" {
				if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
					createdAt = time.Unix(ts, 0).UTC()
				}
			}

			bookmarks = append(bookmarks, model.Bookmark{
				Title:     title,
				URL:       href,
				CreatedAt: createdAt,
			})
			return // Don't recurse into A
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return bookmarks, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
