package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinTokenLength is the shortest token kept by Normalize
const MinTokenLength = 3

// stopWords are dropped from keyword extraction. English function words plus
// the greetings and sign-offs that appear in nearly every support email.
var stopWords = toSet(
	// articles, pronouns, auxiliaries
	"the", "and", "for", "are", "but", "not", "you", "all", "any", "can", "had",
	"her", "was", "one", "our", "out", "has", "him", "his", "how", "its", "may",
	"new", "now", "own", "see", "who", "did", "get", "got", "let", "she", "too",
	"use", "way", "yes", "yet", "also", "been", "have", "from", "that", "this",
	"they", "them", "then", "than", "their", "there", "these", "those", "what",
	"when", "where", "which", "while", "will", "with", "would", "could", "should",
	"your", "yours", "about", "after", "again", "into", "just", "like", "more",
	"most", "much", "only", "other", "over", "same", "some", "such", "very",
	"were", "does", "doing", "done", "being", "each", "here", "because", "before",
	"below", "between", "both", "during", "further", "once", "under", "until",
	"why", "off", "few", "nor", "ours", "ourselves", "themselves", "itself",
	"myself", "yourself", "hers", "herself", "himself", "whom", "having",
	"onto", "upon", "shall", "might", "must", "need", "still", "even",
	"ever", "every", "make", "made", "want", "know", "think", "take", "going",
	// email boilerplate
	"hello", "dear", "regards", "thanks", "thank", "please", "sent", "wrote",
	"best", "kind", "team", "cheers", "sincerely", "hey", "greetings", "reply",
	"forwarded", "original", "message", "subject",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether word is in the stop-word set
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Tokenize lowercases text, replaces everything that is not a letter or digit
// with whitespace and splits on whitespace. No filtering is applied.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	// A Caser holds state, so one is built per call.
	lower := cases.Lower(language.Und).String(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, lower)
	return strings.Fields(cleaned)
}

// Normalize tokenizes text and removes stop-words and tokens shorter than
// MinTokenLength characters. Empty text yields an empty slice.
func Normalize(text string) []string {
	tokens := Tokenize(text)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < MinTokenLength {
			continue
		}
		if IsStopWord(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}
