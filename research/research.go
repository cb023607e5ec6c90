// Package research fetches short training-reference snippets from the web
// to seed workout generation prompts. Results are best-effort: any failure
// degrades to an empty snippet list and never blocks plan generation.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

// Snippet is one search result reduced to prompt-sized text.
type Snippet struct {
	Title string
	URL   string
	Text  string
}

// Client queries a lightweight HTML search endpoint and extracts result
// snippets.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func New(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Search returns up to max snippets for the query.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Snippet, error) {
	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "fitpipe/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var snippets []Snippet
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find(".result__title").Text())
		link := sel.Find(".result__a").AttrOr("href", "")
		text := strings.TrimSpace(sel.Find(".result__snippet").Text())
		if title == "" || text == "" {
			return true
		}
		snippets = append(snippets, Snippet{Title: title, URL: link, Text: text})
		return len(snippets) < max
	})
	return snippets, nil
}

// PromptContext formats snippets for inclusion in a generation prompt. A nil
// client or a failed search yields the empty string.
func (c *Client) PromptContext(ctx context.Context, query string, max int) string {
	if c == nil {
		return ""
	}
	snippets, err := c.Search(ctx, query, max)
	if err != nil {
		c.logger.Warn("research lookup failed", "query", query, "error", err)
		return ""
	}
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range snippets {
		fmt.Fprintf(&b, "- %s: %s\n", s.Title, s.Text)
	}
	return b.String()
}
