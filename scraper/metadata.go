package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"pricescout/config"
	"pricescout/models"
)

// MetadataExtractor guesses brand/model/attributes from a product title by
// asking the Gemini API. It is strictly best-effort: every failure mode,
// from a missing key to a malformed response, degrades to "no metadata".
type MetadataExtractor struct {
	apiKey     string
	endpoint   string
	modelNames []string
	client     *http.Client
}

// NewMetadataExtractor creates an extractor from config.
func NewMetadataExtractor(cfg config.GeminiConfig) *MetadataExtractor {
	return &MetadataExtractor{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		modelNames: cfg.Models,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Infer asks for structured metadata for the title. Model identifiers are
// tried in sequence until one answers; the first answer is parsed once. nil
// means no metadata available, never an error.
func (m *MetadataExtractor) Infer(title string) *models.ProductMetadata {
	if m.apiKey == "" {
		log.Printf("⚠️  GEMINI_API_KEY not set, skipping metadata extraction")
		return nil
	}

	prompt := fmt.Sprintf("Extract the brand, model, and key attributes from this product title. Return as JSON with keys: brand, model, attributes.\nTitle: %s", title)

	for _, name := range m.modelNames {
		text, err := m.generate(name, prompt)
		if err != nil {
			log.Printf("⚠️  Metadata model %s failed: %v", name, err)
			continue
		}
		meta := parseMetadataResponse(text)
		if meta == nil {
			log.Printf("⚠️  Failed to parse metadata response as JSON, raw: %s", text)
		}
		return meta
	}

	log.Printf("⚠️  Metadata extraction failed: no candidate model succeeded")
	return nil
}

// generate calls one model and returns its raw text answer.
func (m *MetadataExtractor) generate(model, prompt string) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", m.endpoint, model, m.apiKey)
	resp, err := m.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %v", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// parseMetadataResponse strips any Markdown code fence and parses the
// payload defensively: fields may be missing, null, or the wrong type.
func parseMetadataResponse(text string) *models.ProductMetadata {
	text = stripCodeFence(text)

	var raw struct {
		Brand      interface{}            `json:"brand"`
		Model      interface{}            `json:"model"`
		Attributes map[string]interface{} `json:"attributes"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}

	meta := &models.ProductMetadata{
		Brand: coerceString(raw.Brand),
		Model: coerceString(raw.Model),
	}
	if len(raw.Attributes) > 0 {
		meta.Attributes = make(map[string]string, len(raw.Attributes))
		for k, v := range raw.Attributes {
			if s := coerceString(v); s != "" {
				meta.Attributes[k] = s
			}
		}
	}
	return meta
}

// stripCodeFence removes a wrapping ```json ... ``` or ``` ... ``` fence.
func stripCodeFence(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func coerceString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
