package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// Ordered currency patterns for Indian retail listings. The first pattern
// that matches wins, so the more specific prefixes come first.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)₹\s*[\d,]+(?:\.\d+)?`),
	regexp.MustCompile(`(?i)Rs\.?\s*[\d,]+(?:\.\d+)?`),
	regexp.MustCompile(`(?i)INR\s*[\d,]+(?:\.\d+)?`),
	regexp.MustCompile(`(?i)\b[\d,]+\s*₹`),
	regexp.MustCompile(`(?i)Price:\s*₹?\s*[\d,]+(?:\.\d+)?`),
	regexp.MustCompile(`(?i)MRP:?\s*₹?\s*[\d,]+(?:\.\d+)?`),
}

var numericFragment = regexp.MustCompile(`[\d.]+`)

// ExtractPriceText finds the first currency-formatted substring in arbitrary
// text. The match is returned as-is, not normalized to a number; "" means no
// pattern matched.
func ExtractPriceText(text string) string {
	for _, pattern := range pricePatterns {
		if match := pattern.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

// CleanPrice strips the currency symbol and thousands separators from a raw
// price string and parses the first numeric substring as a float.
func CleanPrice(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, "₹", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	fragment := numericFragment.FindString(cleaned)
	if fragment == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(fragment, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}
