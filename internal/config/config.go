// Package config loads doctran settings from defaults, an optional config
// file, DOCTRAN_* environment variables and bound command-line flags, in
// increasing order of precedence.
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/valpere/doctran/internal/prompt"
)

// ErrInvalid marks every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix is prepended to every environment variable, with dots in keys
// replaced by underscores: pipeline.max_attempts is DOCTRAN_PIPELINE_MAX_ATTEMPTS.
const EnvPrefix = "DOCTRAN"

var (
	Policies        = []string{"abort", "degrade"}
	Stages          = []string{"translate", "proofread"}
	Services        = []string{"google", "ollama", "openrouter"}
	RefinerServices = []string{"ollama", "openrouter"}
)

type Config struct {
	SourceLang string           `mapstructure:"source_lang"`
	TargetLang string           `mapstructure:"target_lang"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Translator TranslatorConfig `mapstructure:"translator"`
	Refiner    RefinerConfig    `mapstructure:"refiner"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	Glossary   GlossaryConfig   `mapstructure:"glossary"`
	Debug      DebugConfig      `mapstructure:"debug"`
	Log        LogConfig        `mapstructure:"log"`
}

type PipelineConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Timeout           time.Duration `mapstructure:"timeout"`
	FailurePolicy     string        `mapstructure:"failure_policy"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	ContextWords      int           `mapstructure:"context_words"`
	Stages            []string      `mapstructure:"stages"`
	SkipNonCandidates bool          `mapstructure:"skip_non_candidates"`
	VerifyStructure   bool          `mapstructure:"verify_structure"`
	VerifyLanguage    bool          `mapstructure:"verify_language"`
	ProtectCode       bool          `mapstructure:"protect_code"`
}

type TranslatorConfig struct {
	Service     string   `mapstructure:"service"`
	Models      []string `mapstructure:"models"`
	BaseURL     string   `mapstructure:"base_url"`
	APIKey      string   `mapstructure:"api_key"`
	Credentials string   `mapstructure:"credentials"`
	ProjectID   string   `mapstructure:"project_id"`
}

// RefinerConfig selects the LLM behind the proofread stage.
type RefinerConfig struct {
	Service string `mapstructure:"service"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// PromptsConfig holds inline templates or paths to template files. A file
// wins over the inline text; both empty means the built-in template.
type PromptsConfig struct {
	Translate     string `mapstructure:"translate"`
	Correct       string `mapstructure:"correct"`
	TranslateFile string `mapstructure:"translate_file"`
	CorrectFile   string `mapstructure:"correct_file"`
}

type GlossaryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type DebugConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults registers the default of every key. Keys must be known to
// viper for AutomaticEnv to resolve them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source_lang", "auto")
	v.SetDefault("target_lang", "")

	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.retry_delay", 2*time.Second)
	v.SetDefault("pipeline.timeout", 3*time.Minute) // per external call
	v.SetDefault("pipeline.failure_policy", "degrade")
	v.SetDefault("pipeline.concurrency", 1) // >1 disables cross-segment context
	v.SetDefault("pipeline.requests_per_minute", 0)
	v.SetDefault("pipeline.context_words", 25)
	v.SetDefault("pipeline.stages", []string{"translate"})
	v.SetDefault("pipeline.skip_non_candidates", true)
	v.SetDefault("pipeline.verify_structure", true)
	v.SetDefault("pipeline.verify_language", false)
	v.SetDefault("pipeline.protect_code", true)

	v.SetDefault("translator.service", "ollama")
	v.SetDefault("translator.models", []string{})
	v.SetDefault("translator.base_url", "")
	v.SetDefault("translator.api_key", "")
	v.SetDefault("translator.credentials", "")
	v.SetDefault("translator.project_id", "")

	v.SetDefault("refiner.service", "ollama")
	v.SetDefault("refiner.model", "qwen2.5:7b")
	v.SetDefault("refiner.base_url", "")
	v.SetDefault("refiner.api_key", "")

	v.SetDefault("prompts.translate", "")
	v.SetDefault("prompts.correct", "")
	v.SetDefault("prompts.translate_file", "")
	v.SetDefault("prompts.correct_file", "")

	v.SetDefault("glossary.db_path", "")
	v.SetDefault("debug.dir", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.json", false)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads path into v when path is non-empty and decodes the result.
// Flags should be bound to v before calling Load.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}

// Validate checks the settings needed before any segment is processed.
func (c *Config) Validate() error {
	if c.TargetLang == "" {
		return invalid("target language is required", "pass --target or set DOCTRAN_TARGET_LANG")
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return invalid("unknown target language "+c.TargetLang, "use a BCP 47 code such as en, uk or zh-Hans")
	}
	if c.SourceLang != "" && c.SourceLang != "auto" {
		if _, err := language.Parse(c.SourceLang); err != nil {
			return invalid("unknown source language "+c.SourceLang, "use a BCP 47 code, or auto to detect it")
		}
	}

	p := c.Pipeline
	if p.MaxAttempts < 1 {
		return invalid("pipeline.max_attempts must be at least 1", "")
	}
	if p.Concurrency < 1 {
		return invalid("pipeline.concurrency must be at least 1", "")
	}
	if p.ContextWords < 0 || p.RequestsPerMinute < 0 {
		return invalid("pipeline.context_words and pipeline.requests_per_minute must not be negative", "")
	}
	if !slices.Contains(Policies, p.FailurePolicy) {
		return invalid("unknown failure policy "+p.FailurePolicy, "use one of: "+strings.Join(Policies, ", "))
	}
	if len(p.Stages) == 0 {
		return invalid("no pipeline stages configured", "use one or more of: "+strings.Join(Stages, ", "))
	}
	for _, s := range p.Stages {
		if !slices.Contains(Stages, s) {
			return invalid("unknown stage "+s, "use one or more of: "+strings.Join(Stages, ", "))
		}
	}

	if slices.Contains(p.Stages, "translate") {
		if !slices.Contains(Services, c.Translator.Service) {
			return invalid("unknown translator service "+c.Translator.Service, "use one of: "+strings.Join(Services, ", "))
		}
		if c.Translator.Service == "openrouter" && c.Translator.APIKey == "" {
			return invalid("openrouter requires an API key", "pass --api-key or set DOCTRAN_TRANSLATOR_API_KEY")
		}
	}
	if slices.Contains(p.Stages, "proofread") {
		if !slices.Contains(RefinerServices, c.Refiner.Service) {
			return invalid("unknown refiner service "+c.Refiner.Service, "use one of: "+strings.Join(RefinerServices, ", "))
		}
		if c.Refiner.Model == "" {
			return invalid("the proofread stage requires a refiner model", "set refiner.model or DOCTRAN_REFINER_MODEL")
		}
		if c.Refiner.Service == "openrouter" && c.Refiner.APIKey == "" {
			return invalid("openrouter requires an API key", "set refiner.api_key or DOCTRAN_REFINER_API_KEY")
		}
	}

	return nil
}

// ResolvePrompts reads any prompt template files once and returns the
// complete, compiled template set.
func (c *Config) ResolvePrompts() (prompt.Set, error) {
	set := prompt.Set{Translate: c.Prompts.Translate, Correct: c.Prompts.Correct}

	if c.Prompts.TranslateFile != "" {
		b, err := os.ReadFile(c.Prompts.TranslateFile)
		if err != nil {
			return prompt.Set{}, errors.Wrapf(err, "read translate prompt %s", c.Prompts.TranslateFile)
		}
		set.Translate = string(b)
	}
	if c.Prompts.CorrectFile != "" {
		b, err := os.ReadFile(c.Prompts.CorrectFile)
		if err != nil {
			return prompt.Set{}, errors.Wrapf(err, "read correct prompt %s", c.Prompts.CorrectFile)
		}
		set.Correct = string(b)
	}

	set = set.WithFallback()
	if err := set.Compile(); err != nil {
		return prompt.Set{}, errors.Mark(err, ErrInvalid)
	}
	return set, nil
}

func invalid(msg, hint string) error {
	err := errors.Mark(errors.New(msg), ErrInvalid)
	if hint != "" {
		err = errors.WithHint(err, hint)
	}
	return err
}
