package segmenter_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/doctran/internal/segmenter"
)

func contents(segs []segmenter.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Content
	}
	return out
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

func TestSplit_SingleHeadingDocument(t *testing.T) {
	segs := segmenter.New().Split("# Title\n\nBody text.")

	require.Len(t, segs, 1)
	assert.Equal(t, 1, segs[0].StartLine)
	assert.Equal(t, 3, segs[0].EndLine)
	assert.Equal(t, "# Title\n\nBody text.", segs[0].Content)
}

func TestSplit_SplitsBeforeSecondHeading(t *testing.T) {
	segs := segmenter.New().Split("# H1\n\n## H2\n\nbody")

	require.Len(t, segs, 2)
	assert.Equal(t, "# H1\n", segs[0].Content)
	assert.Equal(t, 1, segs[0].StartLine)
	assert.Equal(t, 2, segs[0].EndLine)
	assert.Equal(t, "## H2\n\nbody", segs[1].Content)
	assert.Equal(t, 3, segs[1].StartLine)
	assert.Equal(t, 5, segs[1].EndLine)
}

func TestSplit_EmptyInput(t *testing.T) {
	segs := segmenter.New().Split("")

	require.Len(t, segs, 1)
	assert.Equal(t, "", segs[0].Content)
	assert.Equal(t, 1, segs[0].StartLine)
	assert.Equal(t, 1, segs[0].EndLine)
	assert.False(t, segs[0].IsTransformCandidate)
}

func TestSplit_BlankLinesOnly(t *testing.T) {
	segs := segmenter.New().Split("\n\n\n")

	require.Len(t, segs, 1)
	assert.Equal(t, 1, segs[0].StartLine)
	assert.Equal(t, 4, segs[0].EndLine)
}

func TestSplit_LeadingSegment(t *testing.T) {
	segs := segmenter.New().Split("intro line\n# First\ntext")

	require.Len(t, segs, 2)
	assert.Equal(t, "intro line", segs[0].Content)
	assert.Equal(t, "# First\ntext", segs[1].Content)
}

func TestSplit_DeepHeadingsDoNotSplit(t *testing.T) {
	segs := segmenter.New().Split("### Three\n#### Four\n##### Five\n###Nospace")

	require.Len(t, segs, 1)
}

func TestSplit_HeadingInsideFenceDoesNotSplit(t *testing.T) {
	doc := "# Setup\n\n```bash\n# install deps\nmake\n```\n\n## Usage\nrun it"
	segs := segmenter.New().Split(doc)

	require.Len(t, segs, 2)
	assert.True(t, segs[0].HasFencedCode)
	assert.Contains(t, segs[0].Content, "# install deps")
	assert.Equal(t, 8, segs[1].StartLine)
}

func TestSplit_TildeFenceAndLongerCloser(t *testing.T) {
	doc := "~~~\n# not a heading\n~~~~\n# Real"
	segs := segmenter.New().Split(doc)

	require.Len(t, segs, 2)
	assert.Equal(t, 4, segs[1].StartLine)
}

func TestSplit_Tiling(t *testing.T) {
	docs := []string{
		"",
		"\n",
		"# a",
		"# a\n",
		"\n# a\n\n## b\n### c\n#### d\ntext\n",
		"pre\n\n# H\n```\n## x\n```\n## y\nend\n\n",
		"# 标题\n\n正文\n\n## 小节\n内容",
	}

	for _, doc := range docs {
		segs := segmenter.New().Split(doc)
		require.NotEmpty(t, segs)

		assert.Equal(t, doc, strings.Join(contents(segs), "\n"), "join must reproduce %q", doc)

		total := 0
		for i, s := range segs {
			total += lineCount(s.Content)
			assert.Equal(t, s.Lines(), lineCount(s.Content))
			if i == 0 {
				assert.Equal(t, 1, s.StartLine)
			} else {
				assert.Equal(t, segs[i-1].EndLine+1, s.StartLine)
			}
		}
		assert.Equal(t, lineCount(doc), total)
		assert.Equal(t, lineCount(doc), segs[len(segs)-1].EndLine)
	}
}

func TestSplit_TransformCandidateIgnoresFencedCode(t *testing.T) {
	s := segmenter.New(segmenter.WithScripts(unicode.Han))
	segs := s.Split("# Intro\n```\n// 注释\n```\n## 说明\n正文")

	require.Len(t, segs, 2)
	assert.False(t, segs[0].IsTransformCandidate)
	assert.True(t, segs[1].IsTransformCandidate)
}

func TestSplit_TransformCandidateAnyLetterByDefault(t *testing.T) {
	segs := segmenter.New().Split("---\n\n123\n# Title")

	require.Len(t, segs, 2)
	assert.False(t, segs[0].IsTransformCandidate)
	assert.True(t, segs[1].IsTransformCandidate)
}

func TestScriptsFor(t *testing.T) {
	tables, err := segmenter.ScriptsFor("zh")
	require.NoError(t, err)
	assert.True(t, unicode.In('中', tables...))

	tables, err = segmenter.ScriptsFor("uk")
	require.NoError(t, err)
	assert.True(t, unicode.In('ї', tables...))

	_, err = segmenter.ScriptsFor("not a language!")
	assert.Error(t, err)
}
