// Package worker runs one scrape pipeline end to end and reports the result
// as a single JSON line on stdout. Diagnostics go to stderr (the default log
// destination), so the parent process can parse stdout unconditionally.
package worker

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"pricescout/config"
	"pricescout/models"
	"pricescout/scraper"
)

// pageExtractor renders one product page and pulls its fields.
type pageExtractor interface {
	Extract(url string) (*models.ProductRecord, error)
	Close()
}

// metadataInferrer guesses brand/model/attributes from a product title.
type metadataInferrer interface {
	Infer(title string) *models.ProductMetadata
}

// alternateFinder cross-searches comparison platforms for alternate prices.
type alternateFinder interface {
	GetAlternates(ctx context.Context, title, brand, model string) []models.SearchResult
}

// pipeline wires the scrape stages together. Collaborators are built lazily
// through constructors so a run only pays for the stages it uses, and tests
// can swap any stage out.
type pipeline struct {
	newExtractor func() (pageExtractor, error)
	newInferrer  func() metadataInferrer
	newFinder    func() alternateFinder
}

func newPipeline(cfg *config.Config) *pipeline {
	return &pipeline{
		newExtractor: func() (pageExtractor, error) {
			return scraper.NewProductPageExtractor(cfg.ProductPage)
		},
		newInferrer: func() metadataInferrer {
			return scraper.NewMetadataExtractor(cfg.Gemini)
		},
		newFinder: func() alternateFinder {
			return scraper.NewDefaultAggregator(cfg)
		},
	}
}

// Run parses worker-mode arguments, executes the pipeline and returns the
// process exit code. A terminal scrape condition (block, unavailable,
// missing title) still exits 0 with an {error: ...} object; nonzero is
// reserved for failures of the worker itself.
func Run(args []string) int {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	extractMetadata := fs.Bool("metadata", false, "infer brand/model/attributes from the product title")
	getAlternates := fs.Bool("alternates", false, "cross-search comparison platforms for alternate prices")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	url := fs.Arg(0)
	if url == "" {
		fmt.Fprintln(os.Stderr, "usage: pricescout worker [-metadata] [-alternates] <product-url>")
		return 2
	}

	p := newPipeline(config.Load())
	emit(p.run(url, *extractMetadata, *getAlternates))
	return 0
}

// run produces either a ProductRecord or a ScrapeError, never both. A
// terminal extraction error short-circuits the whole pipeline; metadata and
// alternate lookups only happen once a title exists.
func (p *pipeline) run(url string, extractMetadata, getAlternates bool) interface{} {
	extractor, err := p.newExtractor()
	if err != nil {
		log.Printf("❌ Failed to start product page extractor: %v", err)
		return models.ScrapeError{Error: err.Error()}
	}
	defer extractor.Close()

	record, err := extractor.Extract(url)
	if err != nil {
		return models.ScrapeError{Error: err.Error()}
	}

	// Alternate search wants brand/model for its query variants, so metadata
	// is inferred for either flag but attached only when asked for.
	var meta *models.ProductMetadata
	if extractMetadata || getAlternates {
		meta = p.newInferrer().Infer(record.Title)
	}
	if extractMetadata {
		record.Metadata = meta
	}

	if getAlternates {
		brand, model := "", ""
		if meta != nil {
			brand, model = meta.Brand, meta.Model
		}
		record.AlternatePrices = p.newFinder().GetAlternates(context.Background(), record.Title, brand, model)
	}

	return record
}

func emit(result interface{}) {
	out, err := json.Marshal(result)
	if err != nil {
		log.Printf("❌ Failed to encode result: %v", err)
		out = []byte(`{"error":"failed to encode scrape result"}`)
	}
	fmt.Println(string(out))
}
