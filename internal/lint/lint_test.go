package lint

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLint_CleanText(t *testing.T) {
	r := Linter{}.Lint("# Title\n\nBody text.\n")
	assert.Equal(t, "# Title\n\nBody text.\n", r.FixedText)
	assert.Empty(t, r.Messages)
	assert.Empty(t, r.FormattedMessage)
	assert.Zero(t, r.Fixed)
}

func TestLint_FixesPreserveLineCount(t *testing.T) {
	in := "# Title \n\n使用Docker部署\n\ttab end\t\n## Next"
	r := Linter{}.Lint(in)

	assert.Equal(t, "# Title\n\n使用 Docker 部署\n\ttab end\n## Next", r.FixedText)
	assert.Equal(t, strings.Count(in, "\n"), strings.Count(r.FixedText, "\n"))
	assert.Empty(t, r.Messages)
	assert.Equal(t, 3, r.Fixed)
}

func TestLint_HashWordIsNeverTurnedIntoHeading(t *testing.T) {
	in := "#include <stdio.h> is needed\n#42 tracks this"
	r := Linter{}.Lint(in)

	assert.Equal(t, in, r.FixedText)
	assert.Zero(t, r.Fixed)
	require.Len(t, r.Messages, 2)
	for i, m := range r.Messages {
		assert.Equal(t, i+1, m.Line)
		assert.Equal(t, RuleHeadingSpace, m.Rule)
		assert.False(t, m.Fixable)
		assert.True(t, Structural(m.Rule))
	}
}

func TestLint_HardBreakKept(t *testing.T) {
	r := Linter{}.Lint("line one  \nline two")
	assert.Equal(t, "line one  \nline two", r.FixedText)
	assert.Zero(t, r.Fixed)
}

func TestLint_SkipsFencedCode(t *testing.T) {
	in := "```\n#include <stdio.h>   \n使用Go\n```"
	r := Linter{}.Lint(in)
	assert.Equal(t, in, r.FixedText)
	assert.Empty(t, r.Messages)
}

func TestLint_InlineCodeUntouched(t *testing.T) {
	r := Linter{}.Lint("运行 `go测试` 命令")
	assert.Equal(t, "运行 `go测试` 命令", r.FixedText)
}

func TestLint_ReportOnly(t *testing.T) {
	r := Linter{ReportOnly: true}.Lint("#Title")
	assert.Equal(t, "#Title", r.FixedText)
	require.Len(t, r.Messages, 1)
	assert.Equal(t, RuleHeadingSpace, r.Messages[0].Rule)
	assert.False(t, r.Messages[0].Fixable)
	assert.Equal(t, "line 1: [heading-space] missing space after heading marker", r.FormattedMessage)
}

func TestLint_HeadingJump(t *testing.T) {
	r := Linter{}.Lint("# A\n\n### C\n\n## B")
	require.Len(t, r.Messages, 1)
	assert.Equal(t, Message{Line: 3, Rule: RuleHeadingJump, Text: "heading level jumps from 1 to 3"}, r.Messages[0])
	assert.True(t, Structural(r.Messages[0].Rule))
}

func TestLint_UnclosedFence(t *testing.T) {
	r := Linter{}.Lint("text\n```go\nfmt.Println()")
	require.Len(t, r.Messages, 1)
	assert.Equal(t, RuleUnclosedFence, r.Messages[0].Rule)
	assert.Equal(t, 2, r.Messages[0].Line)
}

func TestLint_Untranslated(t *testing.T) {
	l := Linter{Untranslated: []*unicode.RangeTable{unicode.Han}}
	r := l.Lint("# Install\n\nRun the 安装程序.\n\nUse `中文` literally.")

	require.Len(t, r.Messages, 1)
	assert.Equal(t, 3, r.Messages[0].Line)
	assert.Equal(t, RuleUntranslated, r.Messages[0].Rule)
	assert.False(t, Structural(RuleUntranslated))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	got := Format([]Message{
		{Line: 1, Rule: "a", Text: "x"},
		{Line: 2, Rule: "b", Text: "y"},
	})
	assert.Equal(t, "line 1: [a] x\nline 2: [b] y", got)
}
