package intent

import "strings"

// SampleValue pairs a sampled cell value with the column it came from.
type SampleValue struct {
	Column string
	Value  string
}

// ValueMatch is a value-aware filter: the question mentioned something
// that looks like an actual value stored in a column. Exact matches are
// rendered as equality, fuzzy ones as LIKE.
type ValueMatch struct {
	Column string
	Value  string
	Exact  bool
}

// filler words that never identify a stored value.
var valueStopWords = map[string]bool{
	"show": true, "list": true, "display": true, "all": true, "the": true,
	"students": true, "records": true, "employees": true, "customers": true,
}

// MatchValue tokenizes the question and probes each word against the
// sampled values: exact case-insensitive match first, then fuzzy or
// substring match in either direction. First match wins; the owning
// column of the matched sample dictates the filter column. Short or
// common words can false-positive against short values; that looseness
// is deliberate and matches how people abbreviate ("Maths" against a
// sampled "Mathematics").
func MatchValue(question string, samples []SampleValue) (ValueMatch, bool) {
	words := QuestionWords(question)

	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		for _, sample := range samples {
			if strings.EqualFold(word, sample.Value) {
				return ValueMatch{Column: sample.Column, Value: sample.Value, Exact: true}, true
			}
		}
	}

	for _, word := range words {
		if len(word) <= 2 || valueStopWords[word] {
			continue
		}
		for _, sample := range samples {
			sampleLower := strings.ToLower(sample.Value)
			if FuzzyMatch(word, sampleLower) || strings.Contains(sampleLower, word) || strings.Contains(word, sampleLower) {
				return ValueMatch{Column: sample.Column, Value: sample.Value}, true
			}
		}
	}

	return ValueMatch{}, false
}

// QuestionWords lower-cases and splits a question, trimming punctuation.
func QuestionWords(question string) []string {
	fields := strings.Fields(strings.ToLower(question))
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		words = append(words, strings.Trim(field, ".,!?;:"))
	}
	return words
}

// common shorthand seen in questions, mapped to the full word it tends
// to appear inside.
var abbreviations = map[string]string{
	"math": "mathematics", "maths": "mathematics",
	"eng": "engineering", "cs": "computer science",
	"comp": "computer", "sci": "science",
	"bio": "biology", "chem": "chemistry",
	"phys": "physics", "hist": "history",
	"geo": "geography", "econ": "economics",
	"admin": "administration", "mgmt": "management",
	"hr": "human resources", "acc": "accounting",
	"fin": "finance", "ops": "operations",
	"dev": "development", "prod": "product",
	"qty": "quantity", "amt": "amount",
	"dept": "department", "emp": "employee",
	"cust": "customer", "addr": "address",
	"desc": "description",
}

const fuzzyThreshold = 0.6

// FuzzyMatch accepts exact, substring, prefix-abbreviation, known
// shorthand, and rough positional similarity matches.
func FuzzyMatch(word, target string) bool {
	word = strings.TrimSpace(strings.ToLower(word))
	target = strings.TrimSpace(strings.ToLower(target))

	if word == target {
		return true
	}
	if strings.Contains(target, word) || strings.Contains(word, target) {
		return true
	}
	if len(word) >= 3 && strings.HasPrefix(target, word) {
		return true
	}
	if full, ok := abbreviations[word]; ok && strings.Contains(target, full) {
		return true
	}

	if len(word) >= 4 && len(target) >= 4 {
		matches := 0
		for i := 0; i < len(word) && i < len(target); i++ {
			if word[i] == target[i] {
				matches++
			}
		}
		longer := len(word)
		if len(target) > longer {
			longer = len(target)
		}
		if float64(matches)/float64(longer) >= fuzzyThreshold {
			return true
		}
	}

	return false
}
