package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricescout/models"
	"pricescout/scraper"
)

func TestRun_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"flags but no url", []string{"-metadata", "-alternates"}},
		{"unknown flag", []string{"-frobnicate", "https://example.com/item"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 2, Run(tt.args))
		})
	}
}

// stubExtractor plays back one canned extraction.
type stubExtractor struct {
	record *models.ProductRecord
	err    error
	closed bool
}

func (s *stubExtractor) Extract(string) (*models.ProductRecord, error) {
	return s.record, s.err
}

func (s *stubExtractor) Close() { s.closed = true }

type stubInferrer struct {
	meta   *models.ProductMetadata
	called bool
	title  string
}

func (s *stubInferrer) Infer(title string) *models.ProductMetadata {
	s.called = true
	s.title = title
	return s.meta
}

type stubFinder struct {
	results []models.SearchResult
	called  bool
	brand   string
	model   string
}

func (s *stubFinder) GetAlternates(_ context.Context, _, brand, model string) []models.SearchResult {
	s.called = true
	s.brand = brand
	s.model = model
	return s.results
}

func testPipeline(extractor *stubExtractor, inferrer *stubInferrer, finder *stubFinder) *pipeline {
	return &pipeline{
		newExtractor: func() (pageExtractor, error) { return extractor, nil },
		newInferrer:  func() metadataInferrer { return inferrer },
		newFinder:    func() alternateFinder { return finder },
	}
}

func TestPipeline_TerminalErrorsShortCircuit(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing title", scraper.ErrTitleNotFound},
		{"captcha wall", scraper.ErrBlocked},
		{"unavailable page", scraper.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &stubExtractor{err: tt.err}
			inferrer := &stubInferrer{}
			finder := &stubFinder{}

			got := testPipeline(extractor, inferrer, finder).run("https://example.com/item", true, true)

			scrapeErr, ok := got.(models.ScrapeError)
			require.True(t, ok)
			assert.Equal(t, tt.err.Error(), scrapeErr.Error)
			// Downstream stages must never run for a failed extraction, even
			// when both flags asked for them.
			assert.False(t, inferrer.called)
			assert.False(t, finder.called)
			assert.True(t, extractor.closed)
		})
	}
}

func TestPipeline_ExtractorLaunchFailure(t *testing.T) {
	inferrer := &stubInferrer{}
	p := &pipeline{
		newExtractor: func() (pageExtractor, error) { return nil, errors.New("failed to launch browser: no chromium") },
		newInferrer:  func() metadataInferrer { return inferrer },
		newFinder:    func() alternateFinder { return &stubFinder{} },
	}

	got := p.run("https://example.com/item", true, false)

	scrapeErr, ok := got.(models.ScrapeError)
	require.True(t, ok)
	assert.Contains(t, scrapeErr.Error, "failed to launch browser")
	assert.False(t, inferrer.called)
}

func TestPipeline_MetadataAttachedOnlyWhenRequested(t *testing.T) {
	meta := &models.ProductMetadata{Brand: "Acme", Model: "Z1"}

	t.Run("metadata flag set", func(t *testing.T) {
		extractor := &stubExtractor{record: &models.ProductRecord{Title: "Acme Z1 Widget"}}
		inferrer := &stubInferrer{meta: meta}
		finder := &stubFinder{}

		got := testPipeline(extractor, inferrer, finder).run("https://example.com/item", true, false)

		record, ok := got.(*models.ProductRecord)
		require.True(t, ok)
		assert.Equal(t, meta, record.Metadata)
		assert.Equal(t, "Acme Z1 Widget", inferrer.title)
		assert.False(t, finder.called)
	})

	t.Run("alternates only still infers but does not attach", func(t *testing.T) {
		extractor := &stubExtractor{record: &models.ProductRecord{Title: "Acme Z1 Widget"}}
		inferrer := &stubInferrer{meta: meta}
		finder := &stubFinder{results: []models.SearchResult{{Title: "Listing", URL: "https://www.flipkart.com/x", Price: "₹999"}}}

		got := testPipeline(extractor, inferrer, finder).run("https://example.com/item", false, true)

		record, ok := got.(*models.ProductRecord)
		require.True(t, ok)
		assert.Nil(t, record.Metadata)
		assert.True(t, inferrer.called)
		assert.Equal(t, "Acme", finder.brand)
		assert.Equal(t, "Z1", finder.model)
		assert.Len(t, record.AlternatePrices, 1)
	})

	t.Run("neither flag skips both stages", func(t *testing.T) {
		extractor := &stubExtractor{record: &models.ProductRecord{Title: "Acme Z1 Widget"}}
		inferrer := &stubInferrer{meta: meta}
		finder := &stubFinder{}

		got := testPipeline(extractor, inferrer, finder).run("https://example.com/item", false, false)

		record, ok := got.(*models.ProductRecord)
		require.True(t, ok)
		assert.Nil(t, record.Metadata)
		assert.Empty(t, record.AlternatePrices)
		assert.False(t, inferrer.called)
		assert.False(t, finder.called)
	})
}

func TestPipeline_NilMetadataSearchesWithTitleOnly(t *testing.T) {
	extractor := &stubExtractor{record: &models.ProductRecord{Title: "Acme Z1 Widget"}}
	inferrer := &stubInferrer{}
	finder := &stubFinder{}

	got := testPipeline(extractor, inferrer, finder).run("https://example.com/item", false, true)

	record, ok := got.(*models.ProductRecord)
	require.True(t, ok)
	assert.True(t, finder.called)
	assert.Empty(t, finder.brand)
	assert.Empty(t, finder.model)
	assert.NotNil(t, record)
}
