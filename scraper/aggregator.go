package scraper

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"pricescout/config"
	"pricescout/models"
)

// platformEntry pairs a searcher with the platform tag stamped onto its
// results.
type platformEntry struct {
	platform models.Platform
	searcher Searcher
}

// Aggregator cross-searches all comparison platforms over a sequence of
// query variants and folds the candidates into one deduplicated, ranked
// list. Each call owns its own accumulator; an Aggregator holds no mutable
// state between calls.
type Aggregator struct {
	entries []platformEntry
	retry   RetryPolicy
	cfg     config.AggregationConfig
	sleep   func(time.Duration)
}

// NewAggregator wires an aggregator from the configured platforms. The
// searcher set is injectable so tests can swap the network out.
func NewAggregator(cfg config.AggregationConfig, retry RetryPolicy, entries []platformEntry) *Aggregator {
	return &Aggregator{
		entries: entries,
		retry:   retry,
		cfg:     cfg,
		sleep:   time.Sleep,
	}
}

// NewDefaultAggregator builds the production aggregator: one HTTP-backed
// searcher per configured platform, all sharing one politeness limiter.
func NewDefaultAggregator(cfg *config.Config) *Aggregator {
	limiter := newSearchLimiter(cfg.Search)
	entries := make([]platformEntry, 0, len(cfg.Platforms))
	for _, platform := range cfg.Platforms {
		entries = append(entries, platformEntry{
			platform: platform.Name,
			searcher: NewPlatformSearcher(platform, cfg.Search, limiter),
		})
	}
	retry := RetryPolicy{
		MaxAttempts: cfg.Aggregation.RetryAttempts,
		Backoff:     cfg.Aggregation.RetryBackoff,
		QueryTokens: 3,
		Sleep:       time.Sleep,
	}
	return NewAggregator(cfg.Aggregation, retry, entries)
}

// GenerateQueryVariants derives the search queries tried for one product, in
// order: the title alone, then brand/model combinations when known. Each
// variant is whitespace-normalized.
func GenerateQueryVariants(title, brand, model string) []string {
	variants := []string{title}
	switch {
	case brand != "" && model != "":
		variants = append(variants, brand+" "+model, brand+" "+model+" "+title)
	case brand != "":
		variants = append(variants, brand+" "+title)
	case model != "":
		variants = append(variants, model+" "+title)
	}
	for i, v := range variants {
		variants[i] = strings.Join(strings.Fields(v), " ")
	}
	return variants
}

// GetAlternates runs the full aggregation: every variant in order, all
// platforms fanned out concurrently per variant, stopping early once enough
// priced results have accumulated. Later variants are skipped entirely at
// that point, not deferred.
func (a *Aggregator) GetAlternates(ctx context.Context, title, brand, model string) []models.SearchResult {
	variants := GenerateQueryVariants(title, brand, model)

	var all []models.SearchResult
	for i, query := range variants {
		log.Printf("🔍 Searching with query: %s", query)
		all = append(all, a.searchAllPlatforms(ctx, query)...)

		if countPriced(all) >= a.cfg.PricedTarget {
			break
		}
		if i < len(variants)-1 {
			a.sleep(a.cfg.VariantDelay)
		}
	}

	unique := dedupeByURL(all)
	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].HasPrice() != unique[j].HasPrice() {
			return unique[i].HasPrice()
		}
		return unique[i].Platform < unique[j].Platform
	})

	if len(unique) > a.cfg.MaxResults {
		unique = unique[:a.cfg.MaxResults]
	}
	return unique
}

// searchAllPlatforms fans one query out to every platform concurrently and
// collects the results back in the fixed platform order, so the accumulated
// sequence is the same as a sequential pass would produce.
func (a *Aggregator) searchAllPlatforms(ctx context.Context, query string) []models.SearchResult {
	perPlatform := make([][]models.SearchResult, len(a.entries))

	var wg sync.WaitGroup
	for i, entry := range a.entries {
		wg.Add(1)
		go func(i int, entry platformEntry) {
			defer wg.Done()
			perPlatform[i] = a.retry.SearchWithRetry(ctx, entry.searcher, query, entry.platform)
		}(i, entry)
	}
	wg.Wait()

	var collected []models.SearchResult
	for i, entry := range a.entries {
		for _, result := range perPlatform[i] {
			result.Platform = entry.platform
			collected = append(collected, result)
		}
	}
	return collected
}

// dedupeByURL keeps the first occurrence of every URL.
func dedupeByURL(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool, len(results))
	unique := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		unique = append(unique, r)
	}
	return unique
}
