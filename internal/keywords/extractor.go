// Package keywords extracts salient terms from user prompts and accumulates
// them into a growing set of contextual keywords for one orchestrator.
package keywords

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Keyword is a term with its relevance score
type Keyword struct {
	Term  string
	Score float64
}

// Extractor pulls keywords out of a sentence
type Extractor interface {
	Extract(ctx context.Context, sentence string) ([]Keyword, error)
}

// StopwordExtractor scores unigrams and adjacent bigrams by frequency after
// dropping stopwords and punctuation.
type StopwordExtractor struct {
	// Limit caps the number of returned keywords. Zero means no cap.
	Limit     int
	stopwords map[string]struct{}
}

// NewStopwordExtractor returns an extractor with the built-in English stopword list
func NewStopwordExtractor() *StopwordExtractor {
	sw := make(map[string]struct{}, len(englishStopwords))
	for _, w := range englishStopwords {
		sw[w] = struct{}{}
	}
	return &StopwordExtractor{stopwords: sw}
}

func (e *StopwordExtractor) Extract(ctx context.Context, sentence string) ([]Keyword, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(sentence)
	scores := make(map[string]float64)
	order := make(map[string]int)
	note := func(term string, weight float64) {
		if _, seen := order[term]; !seen {
			order[term] = len(order)
		}
		scores[term] += weight
	}

	var prev string
	for _, tok := range tokens {
		if e.isStopword(tok) || len([]rune(tok)) < 2 {
			prev = ""
			continue
		}
		note(tok, 1)
		if prev != "" {
			note(prev+" "+tok, 1.5)
		}
		prev = tok
	}

	out := make([]Keyword, 0, len(scores))
	for term, score := range scores {
		out = append(out, Keyword{Term: term, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return order[out[i].Term] < order[out[j].Term]
	})

	if e.Limit > 0 && len(out) > e.Limit {
		out = out[:e.Limit]
	}
	return out, nil
}

func (e *StopwordExtractor) isStopword(tok string) bool {
	_, ok := e.stopwords[strings.ToLower(tok)]
	return ok
}

// tokenize splits on anything that is not a letter, digit or an inner
// hyphen/dot (so "next.js" and "real-time" survive).
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == '+' || r == '#')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-.")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"down", "during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "let", "me",
	"more", "most", "my", "myself", "no", "nor", "not", "now", "of", "off", "on",
	"once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
	"please", "same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "to", "too", "under", "until", "up", "very", "want",
	"was", "we", "were", "what", "when", "where", "which", "while", "who", "whom",
	"why", "will", "with", "would", "you", "your", "yours", "yourself", "yourselves",
}
