package assembler

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/doctran/internal/segmenter"
	"github.com/valpere/doctran/internal/validator"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join(nil))
	assert.Equal(t, "only\n", Join([]string{"only\n"}))
	assert.Equal(t, "a\nb\n\nc", Join([]string{"a", "b\n", "c"}))
}

func TestJoin_LineCountIsSum(t *testing.T) {
	sets := [][]string{
		{""},
		{"", ""},
		{"# a\n", "## b\n\ntext"},
		{"x\n\n", "\n", "y"},
	}
	for _, set := range sets {
		sum := 0
		for _, s := range set {
			sum += validator.Lines(s)
		}
		assert.Equal(t, sum, validator.Lines(Join(set)), "%q", set)
	}
}

func TestJoin_RoundTripsSegmenter(t *testing.T) {
	docs := []string{
		"",
		"# only",
		"lead\n# A\n\n## B\ntext\n",
		"# A\n```\n# in fence\n```\n\n### C\n\n\n",
	}
	for _, doc := range docs {
		segs := segmenter.New().Split(doc)
		texts := make([]string, len(segs))
		for i, s := range segs {
			texts[i] = s.Content
		}
		assert.Equal(t, doc, Join(texts))
	}
}

func TestAssemble(t *testing.T) {
	doc := "# A\ntext\n## B\nmore"
	segs := segmenter.New().Split(doc)
	parts := make([]Part, len(segs))
	for i, s := range segs {
		parts[i] = Part{Segment: s, Text: strings.ToUpper(s.Content)}
	}

	out, err := Assemble(parts)
	require.NoError(t, err)
	assert.Equal(t, strings.ToUpper(doc), out)
}

func TestAssemble_RejectsGapsAndDisorder(t *testing.T) {
	a := segmenter.Segment{StartLine: 1, EndLine: 2}
	b := segmenter.Segment{StartLine: 3, EndLine: 3}
	c := segmenter.Segment{StartLine: 5, EndLine: 6}

	_, err := Assemble([]Part{{Segment: b}, {Segment: a}})
	assert.True(t, errors.Is(err, ErrSeqInvalid))

	_, err = Assemble([]Part{{Segment: a}, {Segment: b}, {Segment: c}})
	assert.True(t, errors.Is(err, ErrSeqInvalid))

	_, err = Assemble([]Part{{Segment: a}, {Segment: b}})
	assert.NoError(t, err)
}
