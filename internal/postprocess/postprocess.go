// Package postprocess removes common LLM artifacts from transform output
// and fits the cleaned text back onto the newline edges of its source
// segment, so line-count drift introduced by trimming is undone before
// validation.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text and returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// Fit prepares a cleaned transform output for the line-count check against
// source: a code fence wrapping the whole output is dropped unless source
// itself starts with one, and the runs of newlines that open and close
// source are restored around the output.
func Fit(source, output string) string {
	if !strings.HasPrefix(strings.TrimLeft(source, "\n"), "```") {
		output = removeFenceWrapping(output)
	}
	return RestoreEdges(source, output)
}

// RestoreEdges replaces the leading and trailing newlines of output with
// those of source.
func RestoreEdges(source, output string) string {
	lead := len(source) - len(strings.TrimLeft(source, "\n"))
	if lead == len(source) {
		// source is nothing but newlines
		return source
	}
	trail := len(source) - len(strings.TrimRight(source, "\n"))
	core := strings.Trim(output, "\n")
	return strings.Repeat("\n", lead) + core + strings.Repeat("\n", trail)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to. Each pattern is anchored to the start of the string
// and requires a colon to reduce false positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:corrected |refined |translated )?(?:translation|text|document|markdown)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:corrected |refined )?(?:translation|translated text)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:corrected |refined |translated )?(?:translation|text|document)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them. Multi-line text is left alone: quotes around a
// document are content, not an artifact.
func removeQuoteWrapping(text string) string {
	if strings.Contains(text, "\n") {
		return text
	}
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

// --- Fence wrapping ---

// fenceWrapRe matches output wrapped entirely in one ```markdown / ```md
// block, the way chat models often return documents.
var fenceWrapRe = regexp.MustCompile("(?s)^\\s*```(?:markdown|md)?[ \\t]*\\n(.*?)\\n?```\\s*$")

func removeFenceWrapping(text string) string {
	m := fenceWrapRe.FindStringSubmatch(text)
	if m == nil || strings.Contains(m[1], "```") {
		return text
	}
	return m[1]
}
