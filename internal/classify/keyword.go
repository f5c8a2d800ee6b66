package classify

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// KeywordClassifier scores text by keyword overlap: each category's score is
// the fraction of its keywords that appear in the text. Matching is
// case-folded, so "SQL" in the index matches "sql" in a document. A Caser is
// stateful, so one is constructed per call rather than shared across
// workers.
type KeywordClassifier struct {
	categories []keywordCategory
}

type keywordCategory struct {
	name   string
	tokens []string
}

// NewKeywordClassifier precomputes the folded keyword tokens for each
// category. Keywords are comma- or whitespace-separated in the index value.
func NewKeywordClassifier(index map[string]string) *KeywordClassifier {
	categories := make([]keywordCategory, 0, len(index))
	for name, keywords := range index {
		tokens := tokenize(keywords)
		if len(tokens) == 0 {
			continue
		}
		categories = append(categories, keywordCategory{name: name, tokens: tokens})
	}
	return &KeywordClassifier{categories: categories}
}

// Classify returns the best-overlapping category, or UNKNOWN when the index
// is empty or the text has no content.
func (k *KeywordClassifier) Classify(_ context.Context, text string) Result {
	if len(k.categories) == 0 || strings.TrimSpace(text) == "" {
		return Unknown()
	}

	folded := " " + strings.Join(splitWords(cases.Fold().String(text)), " ") + " "

	best := Unknown()
	for _, category := range k.categories {
		matched := 0
		for _, token := range category.tokens {
			if strings.Contains(folded, " "+token+" ") {
				matched++
			}
		}
		score := float64(matched) / float64(len(category.tokens))
		if score > best.Score {
			best = Result{Category: category.name, Score: score}
		}
	}
	return best
}

// tokenize folds and splits a keyword description into unique tokens.
func tokenize(keywords string) []string {
	folder := cases.Fold()
	seen := make(map[string]struct{})
	tokens := make([]string, 0, 16)
	for _, word := range splitWords(folder.String(keywords)) {
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}
	return tokens
}

// splitWords breaks text on anything that is not a letter or digit, so
// "payment." in a document still matches the keyword "payment".
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
