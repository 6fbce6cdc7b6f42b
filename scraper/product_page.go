package scraper

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"pricescout/config"
	"pricescout/models"
)

// Terminal extraction failures. Title is the only mandatory field; these
// short-circuit the whole extraction and surface as a single user-facing
// error string.
var (
	ErrBlocked       = errors.New("CAPTCHA or block detected")
	ErrUnavailable   = errors.New("Product page unavailable or not found")
	ErrTitleNotFound = errors.New("Product title not found")
)

// ProductPageExtractor drives a headless browser to a product URL and pulls
// title, price and image out of the rendered DOM.
type ProductPageExtractor struct {
	browser  *rod.Browser
	cfg      config.ProductPageConfig
	detector *BlockDetector
}

// NewProductPageExtractor launches the browser. Uses the system Chromium
// when present (Docker), auto-detection otherwise.
func NewProductPageExtractor(cfg config.ProductPageConfig) (*ProductPageExtractor, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	if _, err := os.Stat(cfg.ChromiumBin); err == nil {
		l = l.Bin(cfg.ChromiumBin)
		log.Printf("Using system Chromium at %s", cfg.ChromiumBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %v", err)
	}

	return &ProductPageExtractor{
		browser:  browser,
		cfg:      cfg,
		detector: NewBlockDetector(cfg.CaptchaMarkers, cfg.UnavailableMarkers),
	}, nil
}

// Close shuts the browser down.
func (e *ProductPageExtractor) Close() {
	if e.browser != nil {
		e.browser.MustClose()
	}
}

// Extract navigates to the product URL and builds a ProductRecord. A block,
// an unavailable page, a navigation timeout or a missing title fail the
// whole call; a missing price or image does not.
func (e *ProductPageExtractor) Extract(url string) (*models.ProductRecord, error) {
	page, err := e.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %v", err)
	}
	defer page.MustClose()

	nav := page.Timeout(e.cfg.NavigationTimeout)
	if err := nav.Navigate(url); err != nil {
		log.Printf("❌ Failed to navigate to %s: %v", url, err)
		return nil, fmt.Errorf("Timeout navigating to %s", url)
	}
	if err := nav.WaitLoad(); err != nil {
		log.Printf("❌ Timeout waiting for %s to load: %v", url, err)
		return nil, fmt.Errorf("Timeout navigating to %s", url)
	}

	if info, err := page.Info(); err == nil && info.URL != url {
		log.Printf("↪️  Navigated from %s to %s", url, info.URL)
	}

	content, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %v", err)
	}

	if blocked, marker := e.detector.DetectCaptcha(content); blocked {
		log.Printf("🚫 Block marker %q on %s", marker, url)
		return nil, ErrBlocked
	}
	if gone, marker := e.detector.DetectUnavailable(content); gone {
		log.Printf("🚫 Unavailable marker %q on %s", marker, url)
		return nil, ErrUnavailable
	}

	title, err := e.extractTitle(page)
	if err != nil {
		return nil, err
	}

	record := &models.ProductRecord{Title: title}
	record.Price = e.extractPrice(page)
	record.Image = e.extractImage(page)
	return record, nil
}

// extractTitle waits a bounded time for the title element. No title means
// the whole extraction fails.
func (e *ProductPageExtractor) extractTitle(page *rod.Page) (string, error) {
	el, err := page.Timeout(e.cfg.TitleTimeout).Element(e.cfg.TitleSelector)
	if err != nil {
		log.Printf("❌ Timeout waiting for product title (%s)", e.cfg.TitleSelector)
		return "", ErrTitleNotFound
	}
	text, err := el.Text()
	if err != nil {
		return "", ErrTitleNotFound
	}
	title := strings.TrimSpace(text)
	if title == "" {
		return "", ErrTitleNotFound
	}
	return title, nil
}

// extractPrice tries the selector candidates in priority order and stops at
// the first one whose text cleans into a number. Failure is a null price,
// never an error.
func (e *ProductPageExtractor) extractPrice(page *rod.Page) *float64 {
	for _, selector := range e.cfg.PriceSelectors {
		elements, err := page.Elements(selector)
		if err != nil || len(elements) == 0 {
			continue
		}
		text, err := elements.First().Text()
		if err != nil {
			continue
		}
		if price, ok := CleanPrice(text); ok {
			log.Printf("💰 Found price %.2f via selector %q", price, selector)
			return &price
		}
		log.Printf("⚠️  Selector %q text %q did not clean into a price", selector, strings.TrimSpace(text))
	}
	log.Printf("⚠️  No price selector matched, reporting null price")
	return nil
}

// extractImage grabs the main product image src if present.
func (e *ProductPageExtractor) extractImage(page *rod.Page) *string {
	elements, err := page.Elements(e.cfg.ImageSelector)
	if err != nil || len(elements) == 0 {
		return nil
	}
	src, err := elements.First().Attribute("src")
	if err != nil || src == nil || *src == "" {
		return nil
	}
	return src
}
