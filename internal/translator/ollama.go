package translator

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/valpere/doctran/internal/postprocess"
)

var DefaultOllamaModels = []string{
	"qwen2.5:7b",
	"llama3.2",
	"gemma2:9b",
	"mistral:7b",
}

// OllamaTranslator calls a local or remote Ollama server.
type OllamaTranslator struct {
	baseURL string
	models  *modelPool
	client  *http.Client
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func NewOllamaTranslator(baseURL string, models []string) *OllamaTranslator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaTranslator{
		baseURL: baseURL,
		models:  newModelPool(models, DefaultOllamaModels),
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (s *OllamaTranslator) Name() string {
	return "ollama"
}

// Models returns the rotation used when the call names no model.
func (s *OllamaTranslator) Models() []string {
	return s.models.list()
}

// Translate sends the segment as the prompt and the rendered instructions
// as the system message of a non-streaming /api/generate call.
func (s *OllamaTranslator) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := s.models.pick(cfg.Model)
	body := ollamaGenerateRequest{
		Model:   model,
		System:  systemPrompt(req),
		Prompt:  req.Text,
		Options: ollamaOptions{Temperature: 0.2},
	}

	var resp ollamaGenerateResponse
	if err := postJSON(ctx, s.client, s.Name(), s.baseURL+"/api/generate", nil, body, &resp); err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.TranslatedText = postprocess.Clean(resp.Response)
	result.Confidence = 0.7
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     strconv.Itoa(resp.PromptEvalCount),
		"completion_tokens": strconv.Itoa(resp.EvalCount),
	}
	return result, nil
}

// IsAvailable checks that the server answers and, when it lists its
// models, that at least one configured model is installed.
func (s *OllamaTranslator) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Service: s.Name(), Code: resp.StatusCode}
	}

	var tags ollamaTagsResponse
	if err := decodeOptional(resp, &tags); err != nil || len(tags.Models) == 0 {
		return nil
	}
	installed := make(map[string]bool, len(tags.Models))
	for _, m := range tags.Models {
		installed[m.Name] = true
	}
	for _, m := range s.models.list() {
		if installed[m] || installed[m+":latest"] {
			return nil
		}
	}
	return fmt.Errorf("none of the models %v is installed in ollama", s.models.list())
}

func (s *OllamaTranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	return llmLanguages, nil
}
