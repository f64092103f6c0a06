// Package browser fetches pages for research, keeps snapshots of what was
// seen and extracts readable text from them.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/daydemir/devloop/internal/utils"
	"golang.org/x/net/html"
)

// ErrNoPage is returned when reading from a browser that has not navigated
var ErrNoPage = errors.New("browser has no page loaded")

// maxPageBytes caps how much of a page is read
const maxPageBytes = 5 << 20

// HTTPBrowser is a headless, script-free browser over net/http. Each
// instance holds one current page, so concurrent research uses one
// instance per query.
type HTTPBrowser struct {
	Client    *http.Client
	UserAgent string
	// SnapshotRoot is where per-objective page snapshots are written
	SnapshotRoot string
	now          func() time.Time

	mu   sync.Mutex
	url  string
	page []byte
}

// NewHTTPBrowser creates a browser that writes snapshots under snapshotRoot
func NewHTTPBrowser(snapshotRoot string) *HTTPBrowser {
	return &HTTPBrowser{
		Client:       &http.Client{Timeout: 30 * time.Second},
		UserAgent:    "Mozilla/5.0 (compatible; devloop/1.0)",
		SnapshotRoot: snapshotRoot,
		now:          time.Now,
	}
}

// Navigate loads url as the current page
func (b *HTTPBrowser) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("navigate %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fmt.Errorf("navigate %s: read body: %w", url, err)
	}

	b.mu.Lock()
	b.url = url
	b.page = body
	b.mu.Unlock()
	return nil
}

// URL returns the current page's address
func (b *HTTPBrowser) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}

// Screenshot saves a snapshot of the current page under the objective's
// directory and returns its path
func (b *HTTPBrowser) Screenshot(ctx context.Context, objective string) (string, error) {
	b.mu.Lock()
	url, page := b.url, b.page
	b.mu.Unlock()
	if url == "" {
		return "", ErrNoPage
	}

	dir := filepath.Join(b.SnapshotRoot, utils.ObjectiveKey(objective))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.html", b.now().Format("20060102-150405.000"), utils.Slugify(hostOf(url)))
	path := filepath.Join(dir, name)
	header := fmt.Sprintf("<!-- snapshot of %s at %s -->\n", url, b.now().Format(time.RFC3339))
	if err := os.WriteFile(path, append([]byte(header), page...), 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// ExtractText returns the visible text of the current page
func (b *HTTPBrowser) ExtractText(ctx context.Context) (string, error) {
	b.mu.Lock()
	url, page := b.url, b.page
	b.mu.Unlock()
	if url == "" {
		return "", ErrNoPage
	}

	// Non-HTML documents (plain text, JSON, markdown) are returned as-is
	if !looksLikeHTML(page) {
		return collapse(string(page)), nil
	}
	return VisibleText(strings.NewReader(string(page)))
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true, "head": true, "iframe": true, "template": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
}

// VisibleText strips markup, scripts and styles from an HTML document and
// returns its text with one block per line
func VisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc)
	return collapse(sb.String()), nil
}

// collapse squeezes runs of spaces within lines and drops blank lines
func collapse(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func looksLikeHTML(page []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(page[:min(len(page), 512)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html") ||
		strings.Contains(head, "<body") || strings.Contains(head, "<div") || strings.Contains(head, "<p")
}

func hostOf(raw string) string {
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexAny(raw, "/?#"); i != -1 {
		raw = raw[:i]
	}
	return strings.ReplaceAll(raw, ".", "-")
}
