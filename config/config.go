package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pricescout/models"
)

// Config holds all runtime settings. Selector lists, marker phrases and
// platform domains live here rather than in the scraping logic so the
// brittle parts stay replaceable.
type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string
	WorkerTimeout  time.Duration

	Search      SearchConfig
	Platforms   []PlatformConfig
	Aggregation AggregationConfig
	ProductPage ProductPageConfig
	Gemini      GeminiConfig
}

// SearchConfig configures the outbound search-engine client shared by all
// platform searchers.
type SearchConfig struct {
	Endpoint          string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
}

// PlatformConfig describes one comparison site reachable through the search
// engine. URLPrefix scopes result anchors to the site; anything not under it
// is discarded.
type PlatformConfig struct {
	Name      models.Platform
	Domain    string
	URLPrefix string
}

// AggregationConfig tunes the alternate-price aggregation loop.
type AggregationConfig struct {
	PricedTarget  int
	MaxResults    int
	VariantDelay  time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// ProductPageConfig configures the browser-backed product page extraction.
type ProductPageConfig struct {
	NavigationTimeout  time.Duration
	TitleTimeout       time.Duration
	TitleSelector      string
	PriceSelectors     []string
	ImageSelector      string
	CaptchaMarkers     []string
	UnavailableMarkers []string
	ChromiumBin        string
}

// GeminiConfig configures the metadata extraction collaborator.
type GeminiConfig struct {
	APIKey   string
	Endpoint string
	Models   []string
	Timeout  time.Duration
}

// Load builds the configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		WorkerTimeout:  getEnvDuration("WORKER_TIMEOUT", 120*time.Second),
		Search: SearchConfig{
			Endpoint:          getEnv("SEARCH_ENDPOINT", "https://duckduckgo.com/html/"),
			Timeout:           getEnvDuration("SEARCH_TIMEOUT", 15*time.Second),
			UserAgent:         getEnv("SEARCH_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"),
			RequestsPerSecond: getEnvFloat("SEARCH_REQUESTS_PER_SECOND", 2.0),
		},
		Platforms:   DefaultPlatforms(),
		Aggregation: DefaultAggregation(),
		ProductPage: DefaultProductPage(),
		Gemini: GeminiConfig{
			APIKey:   getEnv("GEMINI_API_KEY", ""),
			Endpoint: getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com"),
			Models:   splitList(getEnv("GEMINI_MODELS", "gemini-1.5-flash,gemini-1.5-pro,gemini-1.0-pro")),
			Timeout:  getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
	}
}

// DefaultPlatforms returns the three comparison sites in their fixed query
// order.
func DefaultPlatforms() []PlatformConfig {
	return []PlatformConfig{
		{
			Name:      models.PlatformFlipkart,
			Domain:    "flipkart.com",
			URLPrefix: "https://www.flipkart.com/",
		},
		{
			Name:      models.PlatformMeesho,
			Domain:    "meesho.com",
			URLPrefix: "https://www.meesho.com/",
		},
		{
			Name:      models.PlatformRelianceDigital,
			Domain:    "reliancedigital.in",
			URLPrefix: "https://www.reliancedigital.in/",
		},
	}
}

// DefaultAggregation returns the aggregation tunables. PricedTarget stops
// the whole variant loop once enough priced results accumulate; it is a
// coverage-vs-speed tradeoff, not a hard rule.
func DefaultAggregation() AggregationConfig {
	return AggregationConfig{
		PricedTarget:  getEnvInt("AGGREGATION_PRICED_TARGET", 5),
		MaxResults:    getEnvInt("AGGREGATION_MAX_RESULTS", 15),
		VariantDelay:  getEnvDuration("AGGREGATION_VARIANT_DELAY", 500*time.Millisecond),
		RetryAttempts: getEnvInt("SEARCH_RETRY_ATTEMPTS", 2),
		RetryBackoff:  getEnvDuration("SEARCH_RETRY_BACKOFF", 1*time.Second),
	}
}

// DefaultProductPage returns the product-page extraction settings. The
// selector candidates are tried in order; the first one yielding a cleanly
// parsed price wins.
func DefaultProductPage() ProductPageConfig {
	return ProductPageConfig{
		NavigationTimeout: getEnvDuration("PAGE_NAVIGATION_TIMEOUT", 20*time.Second),
		TitleTimeout:      getEnvDuration("PAGE_TITLE_TIMEOUT", 10*time.Second),
		TitleSelector:     getEnv("PAGE_TITLE_SELECTOR", "#productTitle"),
		PriceSelectors: []string{
			"span.a-price span.a-offscreen",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			"#corePrice_feature_div span.a-offscreen",
			".a-price-whole",
		},
		ImageSelector: getEnv("PAGE_IMAGE_SELECTOR", "#landingImage"),
		CaptchaMarkers: []string{
			"enter the characters you see below",
			"not a robot",
			"captcha",
			"sorry, we just need to make sure you're not a robot",
		},
		UnavailableMarkers: []string{
			"unavailable",
			"404",
			"not found",
		},
		ChromiumBin: getEnv("CHROMIUM_BIN", "/usr/bin/chromium-browser"),
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
