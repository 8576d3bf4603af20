package segmenter

import (
	"fmt"
	"unicode"

	"golang.org/x/text/language"
)

// scriptTables maps ISO 15924 script codes to the unicode tables that
// make up the script's alphabet.
var scriptTables = map[string][]*unicode.RangeTable{
	"Hans": {unicode.Han},
	"Hant": {unicode.Han},
	"Jpan": {unicode.Han, unicode.Hiragana, unicode.Katakana},
	"Kore": {unicode.Hangul, unicode.Han},
	"Cyrl": {unicode.Cyrillic},
	"Latn": {unicode.Latin},
	"Arab": {unicode.Arabic},
	"Grek": {unicode.Greek},
	"Hebr": {unicode.Hebrew},
	"Thai": {unicode.Thai},
	"Deva": {unicode.Devanagari},
	"Geor": {unicode.Georgian},
	"Armn": {unicode.Armenian},
}

// ScriptsFor returns the alphabet tables for a BCP 47 language code, e.g.
// "zh" resolves to Han and "uk" to Cyrillic.
func ScriptsFor(lang string) ([]*unicode.RangeTable, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", lang, err)
	}
	script, _ := tag.Script()
	tables, ok := scriptTables[script.String()]
	if !ok {
		return nil, fmt.Errorf("no alphabet known for script %s of %q", script, lang)
	}
	return tables, nil
}
