// internal/report/sections/refusal.go
package sections

import "strings"

// RefusalDetector reports whether generated text is a model refusal.
type RefusalDetector interface {
	Detect(text string) (phrase string, refused bool)
}

// PhraseDetector matches lowercase phrases against the lowercased text.
type PhraseDetector []string

// DefaultRefusalPhrases are the "no data" answers seen from the model on the ship section.
var DefaultRefusalPhrases = PhraseDetector{
	"aucune donnée",
	"aucune information",
	"je ne dispose pas",
	"je ne peux pas",
}

func (p PhraseDetector) Detect(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, phrase := range p {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}
