// Package search finds the first web result for a research query.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultEndpoint is DuckDuckGo's JavaScript-free results page
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

// ErrNoResults is returned when a search produced no links
var ErrNoResults = errors.New("search returned no results")

// DuckDuckGo queries the DuckDuckGo HTML endpoint
type DuckDuckGo struct {
	Endpoint  string
	Client    *http.Client
	UserAgent string
}

// NewDuckDuckGo creates a search engine. An empty endpoint uses DefaultEndpoint.
func NewDuckDuckGo(endpoint string) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &DuckDuckGo{
		Endpoint:  endpoint,
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "Mozilla/5.0 (compatible; devloop/1.0)",
	}
}

// FirstLink searches for query and returns the URL of the first result
func (d *DuckDuckGo) FirstLink(ctx context.Context, query string) (string, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search %q: unexpected status %s", query, resp.Status)
	}

	link, err := firstResult(resp.Body)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	return link, nil
}

// firstResult returns the href of the first anchor with class result__a
func firstResult(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse results: %w", err)
	}

	var href string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href = attr(n, "href")
			if href != "" {
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	if href == "" {
		return "", ErrNoResults
	}
	return unwrapRedirect(href), nil
}

// unwrapRedirect turns DuckDuckGo's "/l/?uddg=<target>" links into the target
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
