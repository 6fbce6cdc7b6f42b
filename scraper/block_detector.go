package scraper

import (
	"strings"
)

// BlockDetector flags CAPTCHA walls and dead product pages from rendered
// content. Detection is plain case-insensitive substring matching against
// fixed phrase sets; the phrases come from configuration so new retailer
// wording is a config change, not a code change.
type BlockDetector struct {
	captchaMarkers     []string
	unavailableMarkers []string
}

// NewBlockDetector creates a detector for the given marker phrase sets.
func NewBlockDetector(captchaMarkers, unavailableMarkers []string) *BlockDetector {
	return &BlockDetector{
		captchaMarkers:     lowerAll(captchaMarkers),
		unavailableMarkers: lowerAll(unavailableMarkers),
	}
}

// DetectCaptcha reports whether the page content looks like a CAPTCHA or
// robot-check interstitial, and which marker tripped.
func (d *BlockDetector) DetectCaptcha(content string) (bool, string) {
	lower := strings.ToLower(content)
	for _, marker := range d.captchaMarkers {
		if strings.Contains(lower, marker) {
			return true, marker
		}
	}
	return false, ""
}

// DetectUnavailable reports whether the page content indicates the product
// is gone or the page does not exist.
func (d *BlockDetector) DetectUnavailable(content string) (bool, string) {
	lower := strings.ToLower(content)
	for _, marker := range d.unavailableMarkers {
		if strings.Contains(lower, marker) {
			return true, marker
		}
	}
	return false, ""
}

func lowerAll(markers []string) []string {
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return lowered
}
