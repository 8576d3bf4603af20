package translator

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/valpere/doctran/internal/postprocess"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"meta-llama/llama-3.3-70b-instruct:free",
}

// OpenRouterService calls the OpenRouter chat completions API.
type OpenRouterService struct {
	apiKey  string
	baseURL string
	models  *modelPool
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func NewOpenRouterService(apiKey string, baseURL string, models []string) *OpenRouterService {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  newModelPool(models, DefaultOpenRouterModels),
		client:  &http.Client{Timeout: 180 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) Models() []string {
	return s.models.list()
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "OpenRouter API key required"
		return result, fmt.Errorf("OpenRouter API key required")
	}

	model := s.models.pick(cfg.Model)
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
		Temperature: 0.2,
		MaxTokens:   8192,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("HTTP-Referer", "https://doctran.local")
	header.Set("X-Title", "doctran")

	var resp chatResponse
	if err := postJSON(ctx, s.client, s.Name(), s.baseURL+"/chat/completions", header, body, &resp); err != nil {
		result.Error = err.Error()
		return result, err
	}
	if len(resp.Choices) == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	result.TranslatedText = postprocess.Clean(resp.Choices[0].Message.Content)
	result.Confidence = 0.7
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     strconv.Itoa(resp.Usage.PromptTokens),
		"completion_tokens": strconv.Itoa(resp.Usage.CompletionTokens),
	}
	return result, nil
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}

func (s *OpenRouterService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return llmLanguages, nil
}
