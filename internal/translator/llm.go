package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// llmLanguages lists the languages the LLM backends handle reliably. The
// models accept any language name; this is advisory only.
var llmLanguages = []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}

// modelPool hands out the configured models in turn so consecutive
// attempts on the same segment hit different models.
type modelPool struct {
	mu     sync.Mutex
	models []string
	next   int
}

func newModelPool(models, defaults []string) *modelPool {
	if len(models) == 0 {
		models = defaults
	}
	return &modelPool{models: append([]string(nil), models...)}
}

// pick returns override when set, otherwise the next model.
func (p *modelPool) pick(override string) string {
	if override != "" {
		return override
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.models[p.next%len(p.models)]
	p.next++
	return m
}

func (p *modelPool) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.models...)
}

// StatusError reports a non-200 answer from a backend.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Code, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// postJSON sends body and decodes a 200 answer into out.
func postJSON(ctx context.Context, client *http.Client, service, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Service: service, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}

// decodeOptional decodes a response body that may legitimately be empty.
func decodeOptional(resp *http.Response, out any) error {
	err := json.NewDecoder(resp.Body).Decode(out)
	if err == io.EOF {
		return nil
	}
	return err
}
