package models

import (
	"encoding/json"
)

// Platform identifies one of the comparison retail sites queried for
// alternate pricing.
type Platform string

const (
	PlatformFlipkart        Platform = "flipkart"
	PlatformMeesho          Platform = "meesho"
	PlatformRelianceDigital Platform = "reliance_digital"
)

// SearchResult is one candidate listing discovered on a comparison platform.
// Price holds the raw currency-formatted substring exactly as it appeared in
// the search snippet; turning it into a number is a downstream concern.
type SearchResult struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Price    string   `json:"-"`
	Platform Platform `json:"platform,omitempty"`
}

// HasPrice returns true if a price-bearing snippet was found for this result.
func (r *SearchResult) HasPrice() bool {
	return r.Price != ""
}

// MarshalJSON renders the price as null rather than "" when absent.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type Alias SearchResult
	return json.Marshal(&struct {
		Alias
		Price *string `json:"price"`
	}{
		Alias: (Alias)(r),
		Price: r.pricePtr(),
	})
}

func (r *SearchResult) pricePtr() *string {
	if r.Price == "" {
		return nil
	}
	price := r.Price
	return &price
}

// ProductMetadata is the best-effort brand/model guess inferred from a
// product title. Every field is optional; never trust the shape of what the
// language model returns.
type ProductMetadata struct {
	Brand      string            `json:"brand,omitempty"`
	Model      string            `json:"model,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ProductRecord is the terminal artifact of one scrape: the extracted
// product page fields plus optional metadata and alternate prices. Title is
// the only mandatory field; Price and Image stay null when extracting that
// field failed.
type ProductRecord struct {
	Title           string           `json:"title"`
	Price           *float64         `json:"price"`
	Image           *string          `json:"image"`
	Metadata        *ProductMetadata `json:"metadata,omitempty"`
	AlternatePrices []SearchResult   `json:"alternate_prices,omitempty"`
}

// ScrapeError is the single-object error payload a failed extraction
// produces instead of a ProductRecord.
type ScrapeError struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

// ScrapeResponse is the HTTP envelope around one worker invocation. Results
// carries the worker's stdout verbatim once it parsed as JSON, or a
// ScrapeError with the raw output when it did not.
type ScrapeResponse struct {
	Results    json.RawMessage `json:"results"`
	Stderr     string          `json:"stderr"`
	ReturnCode int             `json:"returncode"`
}
