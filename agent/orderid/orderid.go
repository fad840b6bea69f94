// Package orderid normalizes order identifiers and resolves the one id a turn
// works with from the classifier, the ticket text and the thread's history.
package orderid

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type Source string

const (
	SourceNone       Source = "none"
	SourceClassifier Source = "classifier"
	SourceText       Source = "text"
	SourcePrior      Source = "prior"
)

var (
	textPattern = regexp.MustCompile(`(?i)ORD[-\s]?\d+`)
	separators  = strings.NewReplacer("-", "", " ", "")

	placeholders = map[string]struct{}{
		"N/A":          {},
		"NONE":         {},
		"NULL":         {},
		"NOT PROVIDED": {},
		"UNKNOWN":      {},
	}
)

// Normalize strips dashes and spaces and upper-cases the rest.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(id string) string {
	return strings.ToUpper(separators.Replace(id))
}

// IsPlaceholder reports whether a reported id means "explicitly absent".
func IsPlaceholder(id string) bool {
	s := strings.ToUpper(strings.TrimSpace(id))
	if s == "" {
		return true
	}
	_, ok := placeholders[s]
	return ok
}

// ExtractFromText returns the first ORD-shaped token in text, normalized.
func ExtractFromText(text string) (string, bool) {
	m := textPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return Normalize(m), true
}

type Candidates struct {
	Classifier string
	Text       string
	Prior      string
}

// Resolve applies the precedence classifier > text > prior and returns the
// normalized id and where it came from. An empty id means none.
func Resolve(c Candidates) (string, Source) {
	if !IsPlaceholder(c.Classifier) {
		if id := Normalize(strings.TrimSpace(c.Classifier)); id != "" {
			return id, SourceClassifier
		}
	}
	if id, ok := ExtractFromText(c.Text); ok {
		return id, SourceText
	}
	if id := Normalize(strings.TrimSpace(c.Prior)); id != "" {
		return id, SourcePrior
	}
	return "", SourceNone
}

// ThreadID derives the conversation key for a turn: explicit conversation id,
// then explicit order id unless it is a placeholder, then an id found in the ticket text, then a fresh
// random id with no continuity. newID may be nil.
func ThreadID(conversationID, explicitOrderID, text string, newID func() string) string {
	if v := strings.TrimSpace(conversationID); v != "" {
		return v
	}
	if !IsPlaceholder(explicitOrderID) {
		if v := Normalize(strings.TrimSpace(explicitOrderID)); v != "" {
			return v
		}
	}
	if v, ok := ExtractFromText(text); ok {
		return v
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return newID()
}

// ExtractAll returns every ORD-shaped token in text, normalized, in order of
// appearance and without duplicates.
func ExtractAll(text string) []string {
	matches := textPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		id := Normalize(m)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
