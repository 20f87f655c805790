package webhooks

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lherron/advimport/internal/importer"
)

const (
	defaultTimeout     = 500 * time.Millisecond
	defaultConcurrency = 4
)

// Payload is the webhook payload sent when an import run finishes.
type Payload struct {
	Target          string `json:"target"`
	Folders         int    `json:"folders"`
	Journals        int    `json:"journals"`
	LinksResolved   int    `json:"links_resolved"`
	LinksUnresolved int    `json:"links_unresolved"`
	Failed          int    `json:"failed"`
	EmptyImport     bool   `json:"empty_import"`
	Aborted         bool   `json:"aborted"`
	Error           string `json:"error,omitempty"`
}

// PayloadFor builds the payload for a finished run.
func PayloadFor(rep *importer.Report, runErr error) Payload {
	s := rep.Summary()
	payload := Payload{
		Target:          s.Target,
		Folders:         s.Folders,
		Journals:        s.Journals,
		LinksResolved:   s.LinksResolved,
		LinksUnresolved: s.LinksUnresolved,
		Failed:          s.Failed,
		EmptyImport:     s.EmptyImport,
		Aborted:         s.Aborted,
	}
	if runErr != nil {
		payload.Error = runErr.Error()
	}
	return payload
}

// DispatchReport posts the run's payload to every configured URL. Delivery
// is best effort; failures are logged.
func DispatchReport(urls []string, rep *importer.Report, runErr error) {
	payload := PayloadFor(rep, runErr)
	dispatchURLs(ResolveWebhookTargets(urls, payload), payload)
}

// ResolveWebhookTargets templates, normalizes, and de-dupes webhook URLs.
func ResolveWebhookTargets(urls []string, payload Payload) []string {
	if len(urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(urls))
	var normalized []string

	for _, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		templated := applyTemplate(trimmed, payload)
		templated = strings.TrimSpace(templated)
		templated = strings.TrimRight(templated, "/")
		if templated == "" {
			continue
		}
		if !isValidWebhookURL(templated) {
			log.Printf("webhooks: skipping invalid url %q", templated)
			continue
		}
		if _, ok := seen[templated]; ok {
			continue
		}
		seen[templated] = struct{}{}
		normalized = append(normalized, templated)
	}

	return normalized
}

// SplitURLs parses a comma separated URL list.
func SplitURLs(s string) []string {
	var urls []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

func applyTemplate(raw string, payload Payload) string {
	return strings.ReplaceAll(raw, "{target}", url.PathEscape(payload.Target))
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return true
}

func dispatchURLs(urls []string, payload Payload) {
	if len(urls) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhooks: failed to encode payload: %v", err)
		return
	}

	client := &http.Client{Timeout: defaultTimeout}
	workers := defaultConcurrency
	if len(urls) < workers {
		workers = len(urls)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				sendWebhook(client, endpoint, body)
			}
		}()
	}

	for _, endpoint := range urls {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()
}

func sendWebhook(client *http.Client, endpoint string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("webhooks: build request %q failed: %v", endpoint, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("webhooks: request to %q failed: %v", endpoint, err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("webhooks: %q returned %s", endpoint, resp.Status)
	}
}
