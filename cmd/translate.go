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
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal"
	"github.com/valpere/doctran/internal/debug"
	"github.com/valpere/doctran/internal/detector"
	"github.com/valpere/doctran/internal/lint"
	"github.com/valpere/doctran/internal/logger"
	"github.com/valpere/doctran/internal/markdown"
	"github.com/valpere/doctran/internal/orchestrator"
	"github.com/valpere/doctran/internal/segmenter"
)

// errDegraded fails a --strict run whose document is complete but invalid.
var errDegraded = errors.New("translation completed with degraded segments")

var (
	inputFile  string
	outputFile string
	strict     bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a Markdown document segment by segment",
	Long: `Translate a Markdown document segment by segment.

The document is split before every level 1-3 heading outside code fences.
Each segment runs through the configured stages:
  - translate   the translation service (google, ollama, openrouter)
  - proofread   lint fixes, then an LLM correction pass for what remains

Every stage output must keep the segment's line count and heading structure.
Rejected output is retried with the rejection reason. When a segment runs out
of attempts the failure policy decides:
  - degrade     keep the segment's text from before the stage and continue
  - abort       stop the run and report the failing line range

Examples:
  doctran translate -i README.md -o README.uk.md -t uk
  doctran translate -i doc.md -o doc.en.md -s zh -t en --stages translate,proofread --policy abort`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return errors.New("input file and output file cannot be the same")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		text, err := readInput(inputFile)
		if err != nil {
			return err
		}

		if cfg.SourceLang == "" || cfg.SourceLang == "auto" {
			det := detector.New(detector.WithMinimumDistance(0.1))
			sample := markdown.ToPlainText([]byte(text))
			detected, ok := det.DetectISO(sample)
			if !ok {
				return errors.WithHint(errors.New("could not detect the source language"), "pass --source")
			}
			cfg.SourceLang = detected
			fmt.Fprintf(os.Stderr, "Detected source language: %s (confidence %.2f)\n",
				cfg.SourceLang, det.Confidence(sample, detected))
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		prompts, err := cfg.ResolvePrompts()
		if err != nil {
			return err
		}
		policy, err := orchestrator.ParsePolicy(cfg.Pipeline.FailurePolicy)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		glossary, err := loadGlossary(ctx, cfg.Glossary.DBPath, cfg.SourceLang, cfg.TargetLang)
		if err != nil {
			return err
		}
		stages, err := buildStages(ctx, cfg, prompts, glossary, log)
		if err != nil {
			return err
		}

		run := internal.NewRun(inputFile, outputFile, cfg.SourceLang, cfg.TargetLang)
		log = log.With("run", run.ID)

		opts := []orchestrator.Option{
			orchestrator.WithLogger(log),
			orchestrator.WithRequestsPerMinute(cfg.Pipeline.RequestsPerMinute),
		}
		if scripts, err := segmenter.ScriptsFor(cfg.SourceLang); err == nil {
			opts = append(opts, orchestrator.WithSegmenter(segmenter.New(segmenter.WithScripts(scripts...))))
		} else {
			log.Infow("no alphabet for source language, every segment with letters is translated", "error", err)
		}
		if cfg.Debug.Dir != "" {
			sink, err := debug.NewDir(cfg.Debug.Dir, run.ID, log)
			if err != nil {
				return err
			}
			defer sink.Close()
			opts = append(opts, orchestrator.WithSink(sink))
			fmt.Fprintf(os.Stderr, "Debug output: %s\n", sink.Path())
		}

		orch, err := orchestrator.New(stages, orchestrator.OrchestratorConfig{
			MaxAttempts:       cfg.Pipeline.MaxAttempts,
			RetryDelay:        cfg.Pipeline.RetryDelay,
			Timeout:           cfg.Pipeline.Timeout,
			FailurePolicy:     policy,
			Concurrency:       cfg.Pipeline.Concurrency,
			ContextWords:      cfg.Pipeline.ContextWords,
			SkipNonCandidates: cfg.Pipeline.SkipNonCandidates,
			VerifyStructure:   cfg.Pipeline.VerifyStructure,
		}, opts...)
		if err != nil {
			return err
		}

		started := time.Now()
		res, runErr := orch.Run(ctx, text)

		for _, msg := range res.SegmentErrors {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}

		if !res.Complete {
			if res.Document != "" {
				partial := outputFile + ".partial"
				if err := writeOutput(partial, res.Document); err != nil {
					log.Errorw("failed to write partial output", "path", partial, "error", err)
				} else {
					fmt.Fprintf(os.Stderr, "Partial result written to %s\n", partial)
				}
			}
			return runErr
		}
		if runErr != nil {
			return runErr
		}

		if err := writeOutput(outputFile, res.Document); err != nil {
			return err
		}

		fmt.Printf("Successfully translated %s to %s in %s\n", cfg.SourceLang, cfg.TargetLang, time.Since(started).Round(time.Millisecond))
		fmt.Printf("Segments: %d (%d done, %d skipped, %d degraded), lines: %d\n",
			len(res.Segments),
			res.Count(orchestrator.StatusDone),
			res.Count(orchestrator.StatusSkipped),
			res.Count(orchestrator.StatusDegraded),
			res.OutputLines)

		report := lint.Linter{
			ReportOnly:   true,
			Untranslated: untranslatedScripts(cfg.SourceLang, cfg.TargetLang),
		}.Lint(res.Document)
		if n := len(report.Messages); n > 0 {
			fmt.Printf("Lint: %d remaining issues\n", n)
			log.Infow("lint report", "issues", n, "report", report.FormattedMessage)
		}

		if !res.IsValid && strict {
			return errors.WithHint(errDegraded, "inspect the segment errors above, or rerun with --debug-dir")
		}
		return nil
	},
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	f.StringVarP(&inputFile, "input", "i", "", "Input Markdown file (required)")
	f.StringVarP(&outputFile, "output", "o", "", "Output file (required)")
	f.BoolVar(&strict, "strict", false, "Exit non-zero when any segment degraded")

	f.StringP("source", "s", "auto", "Source language code, or auto to detect it")
	f.StringP("target", "t", "", "Target language code (required)")

	f.StringSlice("stages", []string{"translate"}, "Stages to run in order: translate, proofread")
	f.String("policy", "degrade", "What to do when a segment exhausts its attempts: degrade, abort")
	f.Int("max-attempts", 3, "Attempts per stage per segment including the first")
	f.Duration("retry-delay", 2*time.Second, "Pause between attempts")
	f.Duration("timeout", 3*time.Minute, "Timeout of each external call")
	f.Int("concurrency", 1, "Segments processed in parallel (above 1 disables cross-segment context)")
	f.Int("rpm", 0, "Maximum external calls per minute (0 = unlimited)")
	f.Int("context-words", 25, "Words of the previous segment passed as context (0 = none)")
	f.Bool("skip-non-candidates", true, "Pass through segments without source-language text")
	f.Bool("verify-structure", true, "Reject output whose headings or code fences changed")
	f.Bool("verify-language", false, "Reject output not detected as the target language")
	f.Bool("protect-code", true, "Hide code and HTML from the translation service")

	f.String("service", "ollama", "Translation service: google, ollama, openrouter")
	f.StringSlice("models", nil, "Models to rotate for LLM services (default list used if empty)")
	f.String("base-url", "", "Service base URL")
	f.String("api-key", "", "Service API key")
	f.StringP("credentials", "c", "", "Path to Google Cloud credentials")
	f.StringP("project", "p", "", "Google Cloud Project ID")

	f.String("refiner-service", "ollama", "LLM service used by the proofread stage: ollama, openrouter")
	f.String("refiner-model", "qwen2.5:7b", "Model used by the proofread stage")
	f.String("refiner-url", "", "Base URL of the proofread service")
	f.String("refiner-key", "", "API key of the proofread service")
	f.String("translate-prompt", "", "File with the translate prompt template")
	f.String("correct-prompt", "", "File with the correction prompt template")
	f.String("glossary-db", "", "Glossary database (see doctran glossary)")
	f.String("debug-dir", "", "Write every segment input and attempt output under this directory")

	for key, flag := range map[string]string{
		"source_lang":                  "source",
		"target_lang":                  "target",
		"pipeline.stages":              "stages",
		"pipeline.failure_policy":      "policy",
		"pipeline.max_attempts":        "max-attempts",
		"pipeline.retry_delay":         "retry-delay",
		"pipeline.timeout":             "timeout",
		"pipeline.concurrency":         "concurrency",
		"pipeline.requests_per_minute": "rpm",
		"pipeline.context_words":       "context-words",
		"pipeline.skip_non_candidates": "skip-non-candidates",
		"pipeline.verify_structure":    "verify-structure",
		"pipeline.verify_language":     "verify-language",
		"pipeline.protect_code":        "protect-code",
		"translator.service":           "service",
		"translator.models":            "models",
		"translator.base_url":          "base-url",
		"translator.api_key":           "api-key",
		"translator.credentials":       "credentials",
		"translator.project_id":        "project",
		"refiner.service":              "refiner-service",
		"refiner.model":                "refiner-model",
		"refiner.base_url":             "refiner-url",
		"refiner.api_key":              "refiner-key",
		"prompts.translate_file":       "translate-prompt",
		"prompts.correct_file":         "correct-prompt",
		"glossary.db_path":             "glossary-db",
		"debug.dir":                    "debug-dir",
	} {
		bindFlag(key, translateCmd, flag)
	}

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
}
