package scraper

import (
	"context"
	"log"
	"strings"
	"time"

	"pricescout/models"
)

// Searcher is anything that can answer a product query with ranked results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// RetryPolicy bounds repeated searches of one platform. Between attempts the
// query is degraded to its first few tokens, which often rescues searches
// where the full title was too specific for the search engine.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	QueryTokens int
	Sleep       func(time.Duration)
}

// DefaultRetryPolicy returns the stock policy: two attempts, one second
// apart, degrading to the first three tokens.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Backoff:     1 * time.Second,
		QueryTokens: 3,
		Sleep:       time.Sleep,
	}
}

// SearchWithRetry runs the searcher until it yields results or attempts run
// out. A searcher error is logged and counts as an empty attempt; this never
// propagates a failure to the caller.
func (p RetryPolicy) SearchWithRetry(ctx context.Context, s Searcher, query string, platform models.Platform) []models.SearchResult {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		results, err := s.Search(ctx, query)
		if err != nil {
			log.Printf("⚠️  %s search attempt %d failed: %v", platform, attempt, err)
		} else if len(results) > 0 {
			return results
		}
		if attempt < p.MaxAttempts {
			query = shortenQuery(query, p.QueryTokens)
			p.sleep(p.Backoff)
		}
	}
	return nil
}

func (p RetryPolicy) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// shortenQuery keeps the first n whitespace-delimited tokens.
func shortenQuery(query string, n int) string {
	tokens := strings.Fields(query)
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
