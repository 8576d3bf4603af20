package validator

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructure_Preserved(t *testing.T) {
	orig := "# 标题\n\n正文\n\n```go\nfmt.Println()\n```\n"
	cand := "# Title\n\nBody\n\n```go\nfmt.Println()\n```\n"
	assert.NoError(t, Structure(orig, cand))
}

func TestStructure_HeadingLevelChanged(t *testing.T) {
	err := Structure("## 安装\n\n步骤", "### Install\n\nSteps")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructure))
	assert.Contains(t, err.Error(), "heading levels")
}

func TestStructure_FenceDropped(t *testing.T) {
	err := Structure("text\n\n```\ncode\n```", "text\n\ncode\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructure))
	assert.Contains(t, err.Error(), "fenced code blocks")
}
