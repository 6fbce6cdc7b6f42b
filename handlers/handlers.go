package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pricescout/models"
)

// WorkerRunner invokes one scrape as an opaque subprocess and hands back its
// raw streams. Swappable so handler tests never spawn processes.
type WorkerRunner interface {
	Run(ctx context.Context, url string, extractMetadata, getAlternates bool) (stdout, stderr []byte, returnCode int, err error)
}

// ExecWorkerRunner re-executes the current binary in worker mode.
type ExecWorkerRunner struct{}

// Run spawns `<self> worker [-metadata] [-alternates] <url>` under ctx.
func (ExecWorkerRunner) Run(ctx context.Context, url string, extractMetadata, getAlternates bool) ([]byte, []byte, int, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, nil, -1, err
	}

	args := []string{"worker"}
	if extractMetadata {
		args = append(args, "-metadata")
	}
	if getAlternates {
		args = append(args, "-alternates")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, self, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	code := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
			runErr = nil
		} else {
			code = -1
		}
	}
	return []byte(stdout.String()), []byte(stderr.String()), code, runErr
}

// Handlers holds the HTTP endpoints.
type Handlers struct {
	runner  WorkerRunner
	timeout time.Duration
}

// NewHandlers creates the handler set.
func NewHandlers(runner WorkerRunner, timeout time.Duration) *Handlers {
	return &Handlers{
		runner:  runner,
		timeout: timeout,
	}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "pricescout",
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// Scrape handles GET /scrape?url=&extract_metadata=&get_alternates=. The
// scrape itself runs in a worker subprocess; this handler only relays its
// JSON output and never raises past an error payload.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	extractMetadata := parseBoolParam(r.URL.Query().Get("extract_metadata"))
	getAlternates := parseBoolParam(r.URL.Query().Get("get_alternates"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stdout, stderr, code, err := h.runner.Run(ctx, url, extractMetadata, getAlternates)
	if err != nil {
		log.Printf("❌ Worker invocation failed: %v", err)
		writeJSON(w, http.StatusOK, models.ScrapeResponse{
			Results:    mustMarshal(models.ScrapeError{Error: "Failed to run scraper: " + err.Error()}),
			Stderr:     string(stderr),
			ReturnCode: code,
		})
		return
	}

	writeJSON(w, http.StatusOK, models.ScrapeResponse{
		Results:    parseWorkerOutput(stdout),
		Stderr:     string(stderr),
		ReturnCode: code,
	})
}

// parseWorkerOutput expects one JSON object on the worker's stdout. When it
// does not parse, the raw output travels with the error for diagnosis.
func parseWorkerOutput(stdout []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(stdout))
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return json.RawMessage(trimmed)
	}
	return mustMarshal(models.ScrapeError{
		Error: "Failed to parse scraper output",
		Raw:   string(stdout),
	})
}

func parseBoolParam(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

func mustMarshal(v interface{}) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"error":"internal encoding failure"}`)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
