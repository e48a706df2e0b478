// Package filter applies user-configured word substitutions to outgoing
// prompts before they leave the process.
package filter

import (
	"strings"
	"unicode"
)

// Rule maps one word to its replacement. Rules are evaluated in slice order;
// the first rule whose Old matches a word wins that word.
type Rule struct {
	Old string
	New string
}

// Apply rewrites every whole-word, case-sensitive occurrence of a rule's Old
// text with its New text. Matching is a single left-to-right pass: the output
// of a replacement is never re-scanned, so a rule whose New value matches a
// later rule's Old value does not cascade.
func Apply(text string, rules []Rule) string {
	if len(rules) == 0 || text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		b.WriteString(replaceWord(string(runes[start:i]), rules))
	}
	return b.String()
}

func replaceWord(word string, rules []Rule) string {
	for _, rule := range rules {
		if rule.Old == word {
			return rule.New
		}
	}
	return word
}

// Word characters follow conventional identifier semantics: letters, digits,
// and underscore. A rule's Old text embedded inside a longer identifier is
// therefore left alone.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
