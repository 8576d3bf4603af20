// Package refiner implements the correction collaborator of the proofread
// stage. It takes a translated segment plus lint diagnostics and asks an
// LLM to rewrite only what the diagnostics point at.
package refiner

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/doctran/internal/translator"
)

// Request is one correction call. Instructions is the fully rendered
// system prompt, diagnostics included.
type Request struct {
	Instructions string
	Draft        string
}

// Refiner rewrites a draft according to Instructions.
type Refiner interface {
	Refine(ctx context.Context, req Request) (string, error)
}

// ServiceRefiner runs corrections through an LLM translation service. The
// draft goes out as the user text and the instructions as the system
// prompt, so the service's own translation prompt is never used.
type ServiceRefiner struct {
	svc   translator.Service
	model string
}

// New wraps svc. An empty model lets the service pick one.
func New(svc translator.Service, model string) *ServiceRefiner {
	return &ServiceRefiner{svc: svc, model: model}
}

// NewOllama creates a refiner backed by a local Ollama model.
func NewOllama(model, baseURL string) *ServiceRefiner {
	return New(translator.NewOllamaTranslator(baseURL, []string{model}), model)
}

// Refine returns the cleaned correction. An empty answer leaves the draft
// unchanged.
func (r *ServiceRefiner) Refine(ctx context.Context, in Request) (string, error) {
	if strings.TrimSpace(in.Instructions) == "" {
		return "", fmt.Errorf("refinement instructions are empty")
	}

	res, err := r.svc.Translate(ctx, translator.ServiceConfig{Model: r.model}, translator.TranslateRequest{
		Text:         in.Draft,
		SystemPrompt: in.Instructions,
	})
	if err != nil {
		return "", fmt.Errorf("refinement via %s failed: %w", r.svc.Name(), err)
	}

	if strings.TrimSpace(res.TranslatedText) == "" {
		return in.Draft, nil
	}
	return res.TranslatedText, nil
}
