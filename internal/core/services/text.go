package services

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"unicode"
)

// stopWords are filtered out of keyword extraction and term overlap.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "our": true,
	"that": true, "the": true, "their": true, "these": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "which": true,
	"with": true, "will": true, "can": true, "not": true, "also": true,
	"such": true, "been": true, "than": true, "then": true, "there": true,
	"into": true, "each": true, "other": true, "more": true, "most": true,
	"some": true, "when": true, "where": true, "both": true, "between": true,
	"using": true, "used": true, "use": true, "based": true, "may": true,
	"however": true, "thus": true, "therefore": true, "while": true,
}

// splitSentences splits content into sentences on common terminators.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// tokenizeTerms lowercases text and returns the set of terms longer
// than minLen characters, split on non-letter/digit boundaries.
func tokenizeTerms(text string, minLen int) map[string]bool {
	terms := make(map[string]bool)
	for _, tok := range splitWords(text) {
		if len(tok) > minLen {
			terms[strings.ToLower(tok)] = true
		}
	}
	return terms
}

// splitWords splits text into word tokens.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// jaccard computes |a ∩ b| / |a ∪ b| for two term sets.
// Two empty sets yield 0, not 1: no evidence is not a match.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for term := range a {
		if b[term] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// overlapRatio reports what fraction of the terms in a also occur in b.
func overlapRatio(a, b map[string]bool) float64 {
	if len(a) == 0 {
		return 0
	}
	matched := 0
	for term := range a {
		if b[term] {
			matched++
		}
	}
	return float64(matched) / float64(len(a))
}

// extractKeywords returns up to max distinct content words ordered by
// frequency, stop-word filtered. Single-character tokens and numbers
// are skipped.
func extractKeywords(text string, max int) []string {
	counts := make(map[string]int)
	order := make(map[string]int)
	next := 0

	for _, tok := range splitWords(text) {
		word := strings.ToLower(tok)
		if len(word) < 3 || stopWords[word] || isNumeric(word) {
			continue
		}
		if _, seen := counts[word]; !seen {
			order[word] = next
			next++
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}

	// Frequency descending, first occurrence as tie-break so output
	// is deterministic.
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}

// isNumeric reports whether s consists only of digits.
func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// countSyllables estimates syllables in a word by counting vowel
// groups, with a silent-e adjustment. Always at least 1.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false

	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}

	if count < 1 {
		count = 1
	}
	return count
}

// fleschReadingEase computes 206.835 − 1.015·(words/sentence) −
// 84.6·(syllables/word), clamped to [0,100]. Empty text scores 0.
func fleschReadingEase(text string) float64 {
	sentences := splitSentences(text)
	words := splitWords(text)

	if len(sentences) == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	avgSentenceLen := float64(len(words)) / float64(len(sentences))
	avgSyllables := float64(syllables) / float64(len(words))

	score := 206.835 - 1.015*avgSentenceLen - 84.6*avgSyllables
	return math.Max(0, math.Min(100, score))
}

// estimateTokens approximates the token count of a text span as
// ceil(characters / 4).
func estimateTokens(length int) int {
	return (length + 3) / 4
}

// hashText returns the hex SHA-256 of the input.
func hashText(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
