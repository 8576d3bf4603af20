package translator

import (
	"fmt"
	"sort"
	"strings"
)

// systemPrompt returns req.SystemPrompt or, when empty, a generic prompt
// built from the request's language pair, glossary and context.
func systemPrompt(req TranslateRequest) string {
	if req.SystemPrompt != "" {
		return req.SystemPrompt
	}

	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "the detected language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional translator. Translate the following text from %s to %s.\n", sourceLang, req.TargetLang)
	sb.WriteString("Only respond with the translation, nothing else. Keep the same number of lines and the markdown syntax.")

	if req.Instructions != "" {
		sb.WriteString(" ")
		sb.WriteString(req.Instructions)
	}

	if len(req.GlossaryTerms) > 0 {
		sources := make([]string, 0, len(req.GlossaryTerms))
		for src := range req.GlossaryTerms {
			sources = append(sources, src)
		}
		sort.Strings(sources)

		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for _, src := range sources {
			fmt.Fprintf(&sb, "  %s -> %s\n", src, req.GlossaryTerms[src])
		}
	}

	if req.PreviousContext != "" {
		fmt.Fprintf(&sb, "\n\nCONTEXT (previous passage for continuity, do NOT retranslate this):\n...%s", req.PreviousContext)
	}

	return sb.String()
}
