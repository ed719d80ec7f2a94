// Package moderation matches banned words in relayed text, tolerant to leet speak and
// punctuation inserted between letters of a word.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator is immutable once built; a new one is built whenever the word list changes.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

type TextMapping struct {
	Normalized []rune
	OrigIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized words.
// Words that normalize to nothing are skipped, and an empty list yields a moderator that never matches.
func NewModerator(bannedWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(bannedWords))
	for _, word := range bannedWords {
		normalized := normalizeRunes([]rune(word))
		if len(normalized) == 0 {
			log.Debug("Skipping banned word without letters", "word", word)
			continue
		}
		patterns = append(patterns, normalized)
	}

	m := &Moderator{censoredChar: censoredChar, log: log}
	if len(patterns) == 0 {
		return m, nil
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	m.matcher = machine
	log.Debug("Moderator built", "patterns", len(patterns))
	return m, nil
}

// Censor replaces the original characters of every banned word with the censored char
// while preserving spacing, and returns the matched words in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}
	mapping := m.normalize(original)
	if len(mapping.Normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.Normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.OrigIdx) {
			continue
		}

		origStart := mapping.OrigIdx[normStart]
		origEnd := mapping.OrigIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
		found = append(found, string(span.Word))
	}
	return string(origRunes), found
}

// Contains reports whether the text holds at least one banned word.
func (m *Moderator) Contains(text string) bool {
	_, found := m.Censor(text)
	return len(found) > 0
}

// separator stands for any whitespace run in normalized text. Patterns never cross it,
// so a banned word only matches inside one token.
const separator = ' '

// normalize transforms the input string into a searchable format and tracks original rune positions.
func (m *Moderator) normalize(input string) TextMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		folded, ok := fold(norm, r)
		if !ok {
			continue
		}
		norm = append(norm, folded)
		origIdx = append(origIdx, i)
	}
	return TextMapping{Normalized: norm, OrigIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if folded, ok := fold(out, r); ok {
			out = append(out, folded)
		}
	}
	for len(out) > 0 && out[len(out)-1] == separator {
		out = out[:len(out)-1]
	}
	return out
}

// fold maps one rune given what was normalized so far. Whitespace collapses into a single
// separator, other punctuation and symbols are dropped.
func fold(prev []rune, r rune) (rune, bool) {
	if unicode.IsSpace(r) {
		if len(prev) == 0 || prev[len(prev)-1] == separator {
			return 0, false
		}
		return separator, true
	}
	clean := simplifyRune(r)
	if isNoise(clean) {
		return 0, false
	}
	return unicode.ToLower(clean), true
}

// simplifyRune maps common leet speak characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
