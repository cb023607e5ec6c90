package research

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://example.com/a">Beginner programming</a></h2>
  <div class="result__snippet">Start with compound lifts three times a week.</div>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://example.com/b">Fat loss basics</a></h2>
  <div class="result__snippet">A moderate calorie deficit preserves muscle.</div>
</div>
<div class="result">
  <h2 class="result__title"></h2>
  <div class="result__snippet">orphan snippet without a title</div>
</div>
</body></html>`

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubClient(status int, body string) *http.Client {
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})}
}

func TestSearchParsesResults(t *testing.T) {
	c := New(stubClient(http.StatusOK, resultsPage), nil)

	snippets, err := c.Search(context.Background(), "beginner fat_loss workout", 5)
	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, "Beginner programming", snippets[0].Title)
	assert.Equal(t, "https://example.com/a", snippets[0].URL)
	assert.Contains(t, snippets[0].Text, "compound lifts")
}

func TestSearchHonorsMax(t *testing.T) {
	c := New(stubClient(http.StatusOK, resultsPage), nil)

	snippets, err := c.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Len(t, snippets, 1)
}

func TestSearchNonOKStatus(t *testing.T) {
	c := New(stubClient(http.StatusTooManyRequests, ""), nil)

	_, err := c.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestPromptContextDegradesToEmpty(t *testing.T) {
	var nilClient *Client
	assert.Equal(t, "", nilClient.PromptContext(context.Background(), "q", 3))

	c := New(stubClient(http.StatusInternalServerError, ""), nil)
	assert.Equal(t, "", c.PromptContext(context.Background(), "q", 3))
}

func TestPromptContextFormatsSnippets(t *testing.T) {
	c := New(stubClient(http.StatusOK, resultsPage), nil)

	out := c.PromptContext(context.Background(), "q", 3)
	assert.Contains(t, out, "- Beginner programming: Start with compound lifts")
	assert.Contains(t, out, "- Fat loss basics:")
}
