package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Compile(t *testing.T) {
	require.NoError(t, Defaults().Compile())
}

func TestRender_TranslateFirstAttempt(t *testing.T) {
	out, err := Defaults().Render(StageTranslate, Data{SourceLang: "zh", TargetLang: "en", Lines: 3})
	require.NoError(t, err)

	assert.Contains(t, out, "from zh to en")
	assert.Contains(t, out, "exactly 3 lines")
	assert.NotContains(t, out, "TERMINOLOGY")
	assert.NotContains(t, out, "CONTEXT")
	assert.NotContains(t, out, "rejected")
}

func TestRender_TranslateRetryWithContext(t *testing.T) {
	out, err := Defaults().Render(StageTranslate, Data{
		SourceLang:     "zh",
		TargetLang:     "en",
		Lines:          2,
		Context:        "the installer finishes",
		Glossary:       Terms(map[string]string{"容器": "container", "镜像": "image"}),
		FailureReason:  "validation failure: expected 2 lines, got 4",
		PreviousResult: "a\nb\nc\nd",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "容器 -> container")
	assert.Contains(t, out, "...the installer finishes")
	assert.Contains(t, out, "expected 2 lines, got 4")
	assert.Contains(t, out, "a\nb\nc\nd")
}

func TestRender_Correct(t *testing.T) {
	out, err := Defaults().Render(StageCorrect, Data{TargetLang: "en", Lines: 5, Diagnostics: "line 2: heading-space"})
	require.NoError(t, err)
	assert.Contains(t, out, "line 2: heading-space")
}

func TestRender_UnknownStage(t *testing.T) {
	_, err := Defaults().Render("summarize", Data{})
	assert.Error(t, err)
}

func TestCompile_RejectsBrokenTemplate(t *testing.T) {
	s := Set{Translate: "{{.SourceLang", Correct: "ok"}
	assert.Error(t, s.Compile())
}

func TestWithFallback(t *testing.T) {
	s := Set{Translate: "custom {{.TargetLang}}"}.WithFallback()
	assert.Equal(t, "custom {{.TargetLang}}", s.Translate)
	assert.Equal(t, Defaults().Correct, s.Correct)
}

func TestTerms_Sorted(t *testing.T) {
	terms := Terms(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []Term{{"a", "1"}, {"b", "2"}}, terms)
}
