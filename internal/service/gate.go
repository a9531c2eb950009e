package service

import "strings"

// skipPhrases mark small talk that never needs a book lookup. Matching is a
// case-insensitive substring test, so "hi" also matches inside "which".
var skipPhrases = []string{"hello", "hi", "thanks", "thank you", "bye", "goodbye"}

// gateMaxWords is the word count below which a skip phrase suppresses retrieval.
const gateMaxWords = 5

// ShouldRetrieve decides whether an utterance warrants retrieval. It returns
// false only for short utterances containing a skip phrase.
func ShouldRetrieve(utterance string) bool {
	if wordCount(utterance) >= gateMaxWords {
		return true
	}
	lower := strings.ToLower(utterance)
	for _, phrase := range skipPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
