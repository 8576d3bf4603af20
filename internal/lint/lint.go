// Package lint checks translated markdown for mechanical issues. Fixes are
// line-preserving: FixedText always has exactly as many lines as the input,
// so a fixed segment still satisfies the line-count check.
package lint

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/valpere/doctran/internal/markdown"
)

// Rule identifiers.
const (
	RuleTrailingSpace = "trailing-space"
	RuleHeadingSpace  = "heading-space"
	RuleCJKSpacing    = "cjk-spacing"
	RuleUnclosedFence = "unclosed-fence"
	RuleHeadingJump   = "heading-jump"
	RuleUntranslated  = "untranslated"
)

// Message is one finding. Line is 1-based within the linted text.
type Message struct {
	Line    int    `json:"line"`
	Rule    string `json:"rule"`
	Text    string `json:"text"`
	Fixable bool   `json:"fixable"`
}

func (m Message) String() string {
	return fmt.Sprintf("line %d: [%s] %s", m.Line, m.Rule, m.Text)
}

// Report is the result of Lint. Messages lists the issues that remain in
// FixedText; an empty list means no remaining issues.
type Report struct {
	FixedText        string    `json:"fixed_text"`
	Messages         []Message `json:"messages"`
	FormattedMessage string    `json:"formatted_message"`
	Fixed            int       `json:"fixed"`
}

// Linter runs the rules. The zero value applies every fix.
type Linter struct {
	// ReportOnly disables fixes; fixable issues are reported instead.
	ReportOnly bool

	// Untranslated lists scripts that should no longer appear in the text
	// outside code, typically the source language's alphabet.
	Untranslated []*unicode.RangeTable
}

var (
	headingNoSpaceRe = regexp.MustCompile(`^( {0,3})(#{1,6})([^#\s])`)
	headingRe        = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+|$)`)
	trailingRe       = regexp.MustCompile(`[ \t]+$`)
)

// Lint checks text and returns the fixed text with the remaining findings.
func (l Linter) Lint(text string) Report {
	lines := strings.Split(text, "\n")
	var (
		msgs  []Message
		fixed int
		fence markdown.Fence
		prev  int
	)

	for i, line := range lines {
		n := i + 1
		wasOpen := fence.Open()
		fence.Feed(line)
		if wasOpen || fence.Open() {
			continue
		}

		out, found := l.fixLine(line, n)
		if l.ReportOnly {
			msgs = append(msgs, found...)
		} else {
			lines[i] = out
			fixed += len(found)
		}

		// "#include" or "#42" is a paragraph to markdown; turning it into a
		// heading would change the outline, so this rule never fixes
		if headingNoSpaceRe.MatchString(lines[i]) {
			msgs = append(msgs, Message{Line: n, Rule: RuleHeadingSpace, Text: "missing space after heading marker"})
		}

		if l.hasUntranslated(lines[i]) {
			msgs = append(msgs, Message{Line: n, Rule: RuleUntranslated, Text: "text left in the source script"})
		}

		if m := headingRe.FindStringSubmatch(lines[i]); m != nil {
			level := len(m[1])
			if prev > 0 && level > prev+1 {
				msgs = append(msgs, Message{
					Line: n,
					Rule: RuleHeadingJump,
					Text: fmt.Sprintf("heading level jumps from %d to %d", prev, level),
				})
			}
			prev = level
		}
	}

	if fence.Open() {
		msgs = append(msgs, Message{
			Line: fence.OpenedAt(),
			Rule: RuleUnclosedFence,
			Text: "code fence is never closed",
		})
	}

	return Report{
		FixedText:        strings.Join(lines, "\n"),
		Messages:         msgs,
		FormattedMessage: Format(msgs),
		Fixed:            fixed,
	}
}

// fixLine applies the fixable rules to one line outside fenced code.
func (l Linter) fixLine(line string, n int) (string, []Message) {
	var found []Message

	if loc := trailingRe.FindStringIndex(line); loc != nil && line[loc[0]:] != "  " {
		found = append(found, Message{Line: n, Rule: RuleTrailingSpace, Text: "trailing whitespace", Fixable: true})
		line = line[:loc[0]]
	}

	if spaced := spaceCJK(line); spaced != line {
		found = append(found, Message{Line: n, Rule: RuleCJKSpacing, Text: "missing space between CJK and Latin text", Fixable: true})
		line = spaced
	}

	return line, found
}

// spaceCJK inserts a space at every boundary between a CJK ideograph or kana
// and a Latin letter or digit. Inline code spans are left alone.
func spaceCJK(line string) string {
	parts := strings.Split(line, "`")
	// odd indices are inside backticks
	for i := 0; i < len(parts); i += 2 {
		parts[i] = spaceCJKText(parts[i])
	}
	return strings.Join(parts, "`")
}

func (l Linter) hasUntranslated(line string) bool {
	if len(l.Untranslated) == 0 {
		return false
	}
	parts := strings.Split(line, "`")
	for i := 0; i < len(parts); i += 2 {
		for _, r := range parts[i] {
			if unicode.In(r, l.Untranslated...) {
				return true
			}
		}
	}
	return false
}

// Structural reports whether rule concerns document structure rather than
// wording. Structural findings cannot be fixed by rewriting a line.
func Structural(rule string) bool {
	return rule == RuleHeadingJump || rule == RuleUnclosedFence || rule == RuleHeadingSpace
}

func spaceCJKText(s string) string {
	var b strings.Builder
	var last rune
	for i, r := range s {
		if i > 0 && ((isCJK(last) && isLatin(r)) || (isLatin(last) && isCJK(r))) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func isLatin(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Format renders messages one per line, or "" for none.
func Format(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.String())
	}
	return sb.String()
}
