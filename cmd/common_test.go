package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/translator"
)

type stubService struct {
	available error
	langs     []string
}

func (s stubService) Name() string { return "stub" }

func (s stubService) Translate(context.Context, translator.ServiceConfig, translator.TranslateRequest) (*translator.ServiceResult, error) {
	return &translator.ServiceResult{}, nil
}

func (s stubService) IsAvailable(context.Context) error { return s.available }

func (s stubService) SupportedLanguages(context.Context) ([]string, error) { return s.langs, nil }

func TestUntranslatedScripts(t *testing.T) {
	if got := untranslatedScripts("zh", "en"); len(got) != 1 || got[0] != unicode.Han {
		t.Errorf("expected Han for zh->en, got %v", got)
	}
	if got := untranslatedScripts("en", "fr"); got != nil {
		t.Errorf("expected nil for a shared script, got %v", got)
	}
	if got := untranslatedScripts("ja", "zh"); got != nil {
		t.Errorf("expected nil when scripts overlap, got %v", got)
	}
	if got := untranslatedScripts("not a tag!", "en"); got != nil {
		t.Errorf("expected nil for an invalid tag, got %v", got)
	}
}

func TestBuildService_Unknown(t *testing.T) {
	_, err := buildService(config.TranslatorConfig{Service: "systran"})
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("# Title\nbody"); got != "# Title" {
		t.Errorf("unexpected %q", got)
	}
	long := "# " + strings.Repeat("я", 50)
	if got := firstLine(long); len([]rune(got)) != 43 {
		t.Errorf("expected 40 runes plus ellipsis, got %d", len([]rune(got)))
	}
}

func TestReadGlossaryCSV(t *testing.T) {
	entries, err := readGlossaryCSV(strings.NewReader("source,target\n容器, container\n镜像,image\n"), "zh", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SourceTerm != "容器" || entries[0].TargetTerm != "container" || entries[1].SourceLang != "zh" {
		t.Errorf("unexpected entries %+v", entries)
	}

	if _, err := readGlossaryCSV(strings.NewReader("a,b,c\n"), "zh", "en"); err == nil {
		t.Error("expected error for three columns")
	}
	if _, err := readGlossaryCSV(strings.NewReader("source,target\n"), "zh", "en"); err == nil {
		t.Error("expected error for header only")
	}
}

func TestCheckService(t *testing.T) {
	log := zap.NewNop().Sugar()

	if err := checkService(context.Background(), stubService{langs: []string{"en", "uk"}}, "uk-UA", log); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// an unlisted language is not fatal
	if err := checkService(context.Background(), stubService{langs: []string{"en"}}, "uk", log); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := checkService(context.Background(), stubService{available: errors.New("connection refused")}, "uk", log)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if len(errors.GetAllHints(err)) == 0 {
		t.Error("expected a hint")
	}
}

func TestCheckService_OllamaModelMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest"}]}`))
	}))
	defer server.Close()

	svc, err := buildService(config.TranslatorConfig{Service: "ollama", BaseURL: server.URL, Models: []string{"llama3.2"}})
	if err != nil {
		t.Fatalf("buildService: %v", err)
	}
	if err := checkService(context.Background(), svc, "en", zap.NewNop().Sugar()); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for a missing model, got %v", err)
	}
}
