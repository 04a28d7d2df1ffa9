// Package snowball turns free text into stemmed search terms using the
// English Snowball stemmer from kljensen/snowball.
package snowball

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// stopWords are dropped before stemming. They carry no signal for
// matching questions against anchor text and URL paths.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again all am an and any are as at be because been
		before being below between both but by can could did do does doing down
		during each few for from further had has have having he her here hers
		how i if in into is it its itself just me more most my no nor not now
		of off on once only or other our ours out over own same she should so
		some such than that the their theirs them then there these they this
		those through to too under until up very was we were what when where
		which while who whom why will with would you your yours
		www http https html htm php index`) {
		stopWords[w] = struct{}{}
	}
}

// Words splits text into lowercased runs of letters and digits.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Terms returns the stemmed, stop-word free terms of text in order of
// appearance. Duplicates are kept.
func Terms(text string) []string {
	var out []string
	for _, w := range Words(text) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		stemmed, err := snowball.Stem(w, "english", true)
		if err != nil || stemmed == "" {
			stemmed = w
		}
		out = append(out, stemmed)
	}
	return out
}

// TermSet returns the distinct terms of text.
func TermSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Terms(text) {
		set[t] = struct{}{}
	}
	return set
}
