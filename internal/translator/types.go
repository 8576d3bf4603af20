// Package translator wraps the external services the translate stage calls.
// LLM-backed services receive a fully rendered system prompt; machine
// translation services ignore it and translate the text as-is.
package translator

import (
	"context"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`

	// SystemPrompt, when set, replaces the service's built-in instructions.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Used to build the built-in prompt when SystemPrompt is empty.
	PreviousContext string            `json:"previous_context,omitempty"`
	GlossaryTerms   map[string]string `json:"glossary_terms,omitempty"`
	Instructions    string            `json:"instructions,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// Service is one translation backend.
type Service interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}
