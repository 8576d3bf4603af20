/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/lint"
	"github.com/valpere/doctran/internal/prompt"
	"github.com/valpere/doctran/internal/refiner"
	"github.com/valpere/doctran/internal/segmenter"
	"github.com/valpere/doctran/internal/stage"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
	"github.com/valpere/doctran/internal/validator"
)

// buildService constructs the translation service named in the config.
func buildService(c config.TranslatorConfig) (translator.Service, error) {
	switch c.Service {
	case "google":
		return translator.NewGoogleService(c.Credentials, c.APIKey), nil
	case "ollama":
		return translator.NewOllamaTranslator(c.BaseURL, c.Models), nil
	case "openrouter":
		return translator.NewOpenRouterService(c.APIKey, c.BaseURL, c.Models), nil
	}
	return nil, errors.WithHint(
		errors.Mark(errors.Newf("unknown service %q", c.Service), config.ErrInvalid),
		"use one of: google, ollama, openrouter")
}

// loadGlossary returns the terms for the language pair, or nil when no
// glossary database is configured.
func loadGlossary(ctx context.Context, dbPath, sourceLang, targetLang string) (map[string]string, error) {
	if dbPath == "" {
		return nil, nil
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open glossary")
	}
	defer db.Close()

	terms, err := db.GetGlossaryTerms(ctx, sourceLang, targetLang)
	if err != nil {
		return nil, errors.Wrap(err, "load glossary")
	}
	return terms, nil
}

// untranslatedScripts returns the source alphabet when it differs from the
// target's, so leftovers in the source script can be flagged. It returns nil
// when the scripts are shared or unknown.
func untranslatedScripts(sourceLang, targetLang string) []*unicode.RangeTable {
	src, err := segmenter.ScriptsFor(sourceLang)
	if err != nil {
		return nil
	}
	tgt, err := segmenter.ScriptsFor(targetLang)
	if err != nil {
		return nil
	}
	for _, t := range src {
		if slices.Contains(tgt, t) {
			return nil
		}
	}
	return src
}

// availabilityTimeout bounds the startup probe of each service.
const availabilityTimeout = 15 * time.Second

// checkService fails when svc cannot serve requests, so a bad endpoint or a
// missing model stops the run before any segment is processed. An
// unlisted target language is only logged: LLM language lists are advisory.
func checkService(ctx context.Context, svc translator.Service, targetLang string, logger *zap.SugaredLogger) error {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	if err := svc.IsAvailable(ctx); err != nil {
		return errors.WithHint(
			errors.Mark(errors.Wrapf(err, "%s is not available", svc.Name()), config.ErrInvalid),
			"check the service URL, API key and model settings")
	}

	langs, err := svc.SupportedLanguages(ctx)
	if err != nil {
		logger.Debugw("could not list supported languages", "service", svc.Name(), "error", err)
		return nil
	}
	base := strings.ToLower(targetLang)
	if i := strings.IndexAny(base, "-_"); i > 0 {
		base = base[:i]
	}
	if len(langs) > 0 && !slices.ContainsFunc(langs, func(l string) bool {
		return strings.EqualFold(l, targetLang) || strings.EqualFold(l, base)
	}) {
		logger.Warnw("target language not listed by service", "service", svc.Name(), "target", targetLang)
	}
	return nil
}

// buildStages creates the configured stages in order and checks that each
// backing service is reachable.
func buildStages(ctx context.Context, cfg *config.Config, prompts prompt.Set, glossary map[string]string, logger *zap.SugaredLogger) ([]stage.Stage, error) {
	var stages []stage.Stage

	for _, name := range cfg.Pipeline.Stages {
		switch name {
		case stage.NameTranslate:
			svc, err := buildService(cfg.Translator)
			if err != nil {
				return nil, err
			}
			if err := checkService(ctx, svc, cfg.TargetLang, logger); err != nil {
				return nil, err
			}
			opts := []stage.TranslateOption{
				stage.WithServiceConfig(translator.ServiceConfig{
					Credentials: cfg.Translator.Credentials,
					APIKey:      cfg.Translator.APIKey,
					BaseURL:     cfg.Translator.BaseURL,
					ProjectID:   cfg.Translator.ProjectID,
					Timeout:     cfg.Pipeline.Timeout,
				}),
				stage.WithPrompts(prompts),
				stage.WithGlossary(glossary),
				stage.WithCodeProtection(cfg.Pipeline.ProtectCode),
			}
			if cfg.Pipeline.VerifyLanguage {
				opts = append(opts, stage.WithLanguageCheck(validator.New()))
			}
			stages = append(stages, stage.NewTranslate(svc, cfg.SourceLang, cfg.TargetLang, opts...))
			if m, ok := svc.(interface{ Models() []string }); ok {
				logger.Debugw("stage configured", "stage", name, "service", svc.Name(), "models", m.Models(), "glossary_terms", len(glossary))
			} else {
				logger.Debugw("stage configured", "stage", name, "service", svc.Name(), "glossary_terms", len(glossary))
			}

		case stage.NameProofread:
			svc, err := buildService(config.TranslatorConfig{
				Service: cfg.Refiner.Service,
				Models:  []string{cfg.Refiner.Model},
				BaseURL: cfg.Refiner.BaseURL,
				APIKey:  cfg.Refiner.APIKey,
			})
			if err != nil {
				return nil, err
			}
			if err := checkService(ctx, svc, cfg.TargetLang, logger); err != nil {
				return nil, err
			}
			ref := refiner.New(svc, cfg.Refiner.Model)
			linter := lint.Linter{Untranslated: untranslatedScripts(cfg.SourceLang, cfg.TargetLang)}
			stages = append(stages, stage.NewProofread(ref, linter, prompts, cfg.TargetLang))
			logger.Debugw("stage configured", "stage", name, "model", cfg.Refiner.Model)

		default:
			return nil, errors.Mark(errors.Newf("unknown stage %q", name), config.ErrInvalid)
		}
	}
	return stages, nil
}

func readInput(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(b), nil
}
