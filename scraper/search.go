package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	neturl "net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"pricescout/config"
	"pricescout/models"
)

// perCallLimit caps how many candidates a single search call returns.
const perCallLimit = 5

// contextWindow is how far around a matched anchor the raw response is
// scanned for a price snippet.
const contextWindow = 500

// candidateExtractor pulls (title, url, price) candidates out of one
// search-engine HTML response. Implementations are per-platform markup
// strategies; the searcher tries the structured one first and falls back to
// the looser one when it finds no priced candidates.
type candidateExtractor interface {
	extract(html string, platform config.PlatformConfig) []models.SearchResult
}

// PlatformSearcher queries the search engine scoped to one retail site and
// parses the result page into ranked candidates.
type PlatformSearcher struct {
	platform config.PlatformConfig
	cfg      config.SearchConfig
	client   *http.Client
	limiter  *rate.Limiter
	primary  candidateExtractor
	fallback candidateExtractor
}

// newSearchLimiter builds the shared outbound limiter. A burst of one keeps
// fan-out queries spaced out instead of front-loaded.
func newSearchLimiter(cfg config.SearchConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
}

// NewPlatformSearcher builds a searcher for one platform. The shared limiter
// keeps the combined outbound query rate polite; pass nil to disable.
func NewPlatformSearcher(platform config.PlatformConfig, cfg config.SearchConfig, limiter *rate.Limiter) *PlatformSearcher {
	return &PlatformSearcher{
		platform: platform,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		primary:  &structuredExtractor{},
		fallback: &markupExtractor{},
	}
}

// Search issues one site-scoped query and returns up to five candidates,
// priced ones first. A degraded or failed search-engine response comes back
// as an error, never a panic; callers treat errors as empty attempts.
func (s *PlatformSearcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %v", err)
	}
	q := req.URL.Query()
	q.Set("q", fmt.Sprintf("%s site:%s", query, s.platform.Domain))
	req.URL.RawQuery = q.Encode()
	setBrowserHeaders(req, s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s search request failed: %v", s.platform.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s search returned status %d", s.platform.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s search response read failed: %v", s.platform.Name, err)
	}
	html := string(body)

	if reason, degraded := degradedResponse(html); degraded {
		log.Printf("⚠️  Search engine may be blocking or returning no results for %s (%s)", s.platform.Name, reason)
		return nil, nil
	}

	results := s.primary.extract(html, s.platform)
	if countPriced(results) == 0 && s.fallback != nil {
		if alt := s.fallback.extract(html, s.platform); len(alt) > 0 {
			results = alt
		}
	}

	return rankResults(results), nil
}

func setBrowserHeaders(req *http.Request, userAgent string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
}

// degradedResponse detects the search engine's soft failure modes: an empty
// result set, a CAPTCHA interstitial, or a traffic block.
func degradedResponse(html string) (string, bool) {
	lower := strings.ToLower(html)
	for _, marker := range []string{"no results", "captcha", "detected unusual traffic"} {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}

// rankResults stable-partitions priced candidates ahead of unpriced ones,
// preserving discovery order inside each group, and truncates to the
// per-call cap.
func rankResults(results []models.SearchResult) []models.SearchResult {
	if len(results) == 0 {
		return nil
	}
	ranked := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.HasPrice() {
			ranked = append(ranked, r)
		}
	}
	for _, r := range results {
		if !r.HasPrice() {
			ranked = append(ranked, r)
		}
	}
	if len(ranked) > perCallLimit {
		ranked = ranked[:perCallLimit]
	}
	return ranked
}

func countPriced(results []models.SearchResult) int {
	n := 0
	for _, r := range results {
		if r.HasPrice() {
			n++
		}
	}
	return n
}

// structuredExtractor walks the parsed DOM and collects result anchors under
// the platform's URL prefix. The price is looked for in the anchor's parent
// text first, then a raw-text window around the link, then the title itself.
type structuredExtractor struct{}

func (structuredExtractor) extract(html string, platform config.PlatformConfig) []models.SearchResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("⚠️  Failed to parse %s search response: %v", platform.Name, err)
		return nil
	}

	var results []models.SearchResult
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, platform.URLPrefix) {
			return true
		}
		title := strings.TrimSpace(sel.Text())
		if utf8.RuneCountInString(title) < 5 {
			return true
		}

		price := ""
		if parent := sel.Parent(); parent.Length() > 0 {
			price = ExtractPriceText(strings.Join(strings.Fields(parent.Text()), " "))
		}
		if price == "" {
			price = priceNearLink(html, href)
		}
		if price == "" {
			price = ExtractPriceText(title)
		}

		results = append(results, models.SearchResult{
			Title: truncateTitle(title),
			URL:   href,
			Price: price,
		})
		return len(results) < perCallLimit
	})
	return results
}

// markupExtractor is the fallback strategy: it pattern-matches anchors
// straight out of the markup without a DOM walk. Useful when the result page
// nests anchors in a way the structured pass misses.
type markupExtractor struct{}

func (markupExtractor) extract(html string, platform config.PlatformConfig) []models.SearchResult {
	linkPattern := regexp.MustCompile(`(?s)<a[^>]+href="(` + regexp.QuoteMeta(platform.URLPrefix) + `[^"]+)"[^>]*>(.*?)</a>`)
	tagPattern := regexp.MustCompile(`<[^<]+?>`)

	var results []models.SearchResult
	for _, match := range linkPattern.FindAllStringSubmatch(html, -1) {
		href, titleHTML := match[1], match[2]
		if unescaped, err := neturl.QueryUnescape(href); err == nil {
			href = unescaped
		}
		if !strings.Contains(href, platform.Domain) {
			continue
		}

		title := strings.TrimSpace(tagPattern.ReplaceAllString(titleHTML, ""))
		if utf8.RuneCountInString(title) < 5 {
			continue
		}

		price := priceNearLink(html, match[1])
		if price == "" {
			price = ExtractPriceText(titleHTML + " " + title)
		}

		results = append(results, models.SearchResult{
			Title: truncateTitle(title),
			URL:   href,
			Price: price,
		})
		if len(results) >= perCallLimit {
			break
		}
	}
	return results
}

// priceNearLink scans a fixed-size window of raw response text around the
// link's position for a price snippet.
func priceNearLink(html, href string) string {
	pos := strings.Index(html, href)
	if pos < 0 {
		return ""
	}
	start := pos - contextWindow
	if start < 0 {
		start = 0
	}
	end := pos + contextWindow
	if end > len(html) {
		end = len(html)
	}
	return ExtractPriceText(html[start:end])
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return title
}
