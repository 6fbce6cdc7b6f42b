package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricescout/config"
	"pricescout/models"
)

func flipkartPlatform() config.PlatformConfig {
	return config.PlatformConfig{
		Name:      models.PlatformFlipkart,
		Domain:    "flipkart.com",
		URLPrefix: "https://www.flipkart.com/",
	}
}

func newTestSearcher(t *testing.T, handler http.HandlerFunc) (*PlatformSearcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	searcher := NewPlatformSearcher(flipkartPlatform(), config.SearchConfig{
		Endpoint:  server.URL,
		Timeout:   5 * time.Second,
		UserAgent: "test-agent",
	}, nil)
	return searcher, server
}

// padding keeps two anchors more than a context window apart so the raw-text
// price scan cannot bleed from one result into the next.
var padding = strings.Repeat("<!-- spacer -->", 60)

func serpFixture() string {
	return `<html><body>
<div class="result"><a href="https://www.flipkart.com/widget-y">Acme Widget Y 64GB Storage</a></div>
` + padding + `
<div class="result"><a href="https://www.flipkart.com/widget-x">Acme Widget X 128GB Storage</a><span>₹1,299</span></div>
` + padding + `
<div class="result"><a href="https://www.example.com/elsewhere">Unrelated Listing Somewhere Else</a></div>
<div class="result"><a href="https://www.flipkart.com/t">tiny</a></div>
</body></html>`
}

func TestSearch_ParsesAndRanksPricedFirst(t *testing.T) {
	var gotQuery string
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, serpFixture())
	})

	got, err := searcher.Search(context.Background(), "Acme Widget")

	require.NoError(t, err)
	assert.Equal(t, "Acme Widget site:flipkart.com", gotQuery)
	// Off-domain and too-short titles are discarded; the priced anchor ranks
	// ahead of the unpriced one even though it was discovered second.
	require.Len(t, got, 2)
	assert.Equal(t, "https://www.flipkart.com/widget-x", got[0].URL)
	assert.Equal(t, "₹1,299", got[0].Price)
	assert.Equal(t, "https://www.flipkart.com/widget-y", got[1].URL)
	assert.Empty(t, got[1].Price)
}

func TestSearch_CapsResultsAtFive(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, `<div><a href="https://www.flipkart.com/item-%d">Acme Listing Number %d</a><span>₹%d99</span></div>%s`, i, i, i+1, padding)
	}
	b.WriteString("</body></html>")

	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, b.String())
	})

	got, err := searcher.Search(context.Background(), "Acme")

	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSearch_DegradedResponseIsEmptyNotError(t *testing.T) {
	testCases := []string{
		"<html><body>We have detected unusual traffic from your network</body></html>",
		"<html><body>Please complete the CAPTCHA to continue</body></html>",
		"<html><body>No results found for your query</body></html>",
	}

	for _, body := range testCases {
		t.Run(body[:40], func(t *testing.T) {
			searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})

			got, err := searcher.Search(context.Background(), "Acme Widget")

			assert.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSearch_NonSuccessStatusIsError(t *testing.T) {
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	got, err := searcher.Search(context.Background(), "Acme Widget")

	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestSearch_NetworkFailureIsError(t *testing.T) {
	searcher, server := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	got, err := searcher.Search(context.Background(), "Acme Widget")

	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestStructuredExtractor_PriceFromParentText(t *testing.T) {
	html := `<html><body><div><a href="https://www.flipkart.com/widget-x">Acme Widget X 128GB</a> <b>₹1,299</b></div></body></html>`

	got := (structuredExtractor{}).extract(html, flipkartPlatform())

	require.Len(t, got, 1)
	assert.Equal(t, "Acme Widget X 128GB", got[0].Title)
	assert.Equal(t, "₹1,299", got[0].Price)
}

func TestStructuredExtractor_TruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("very long product name ", 10)
	html := `<html><body><a href="https://www.flipkart.com/widget-x">` + long + `</a></body></html>`

	got := (structuredExtractor{}).extract(html, flipkartPlatform())

	require.Len(t, got, 1)
	assert.Len(t, []rune(got[0].Title), 100)
}

func TestMarkupExtractor_FallbackStrategy(t *testing.T) {
	html := `<html><body>
<a href="https://www.flipkart.com/widget-x" class="res"><span>Acme Widget X 128GB</span></a> <span>₹2,499</span>
</body></html>`

	got := (markupExtractor{}).extract(html, flipkartPlatform())

	require.Len(t, got, 1)
	assert.Equal(t, "Acme Widget X 128GB", got[0].Title)
	assert.Equal(t, "https://www.flipkart.com/widget-x", got[0].URL)
	assert.Equal(t, "₹2,499", got[0].Price)
}

func TestExtractors_TitleLengthCountsRunes(t *testing.T) {
	// "फोन" is three characters but nine bytes; a byte count would let it
	// through the minimum-length filter.
	html := `<html><body>
<a href="https://www.flipkart.com/short">फोन</a>
<a href="https://www.flipkart.com/long">मोबाइल फोन कवर</a>
</body></html>`

	for name, extractor := range map[string]candidateExtractor{
		"structured": structuredExtractor{},
		"markup":     markupExtractor{},
	} {
		t.Run(name, func(t *testing.T) {
			got := extractor.extract(html, flipkartPlatform())
			require.Len(t, got, 1)
			assert.Equal(t, "https://www.flipkart.com/long", got[0].URL)
			assert.Equal(t, "मोबाइल फोन कवर", got[0].Title)
		})
	}
}

func TestMarkupExtractor_DiscardsShortTitlesAndForeignDomains(t *testing.T) {
	html := `<html><body>
<a href="https://www.flipkart.com/t">tiny</a>
<a href="https://www.other.com/thing">A Completely Different Site</a>
</body></html>`

	got := (markupExtractor{}).extract(html, flipkartPlatform())

	assert.Empty(t, got)
}

func TestRankResults(t *testing.T) {
	results := []models.SearchResult{
		{URL: "u1"},
		{URL: "u2", Price: "₹100"},
		{URL: "u3"},
		{URL: "u4", Price: "₹200"},
	}

	ranked := rankResults(results)

	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"u2", "u4", "u1", "u3"}, []string{ranked[0].URL, ranked[1].URL, ranked[2].URL, ranked[3].URL})
}
