// internal/report/prompt/fewshot.go
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"report-workers/internal/models"
)

const (
	maxExampleRunes  = 600
	minSentenceCut   = 400
	minExampleRunes  = 50
	maxSourceRunes   = 40
	shortSourceRunes = 37
	examplesHeader   = "EXEMPLES DE RÉFÉRENCE (style à suivre):\nLes exemples ci-dessous proviennent de rapports TME validés. Inspire-toi de leur style et structure, mais adapte le contenu aux données fournies."
	examplesFooter   = "FIN DES EXEMPLES - Maintenant rédige en utilisant les données ci-dessus."
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// FormatExamples renders the few-shot block. Numbering follows the input position,
// so a dropped example leaves a gap.
func FormatExamples(list []models.Example) string {
	parts := make([]string, 0, len(list))
	for i, ex := range list {
		n := i + 1
		content := excessNewlines.ReplaceAllString(strings.TrimSpace(ex.Body()), "\n\n")
		content = truncate(content)
		if len([]rune(content)) <= minExampleRunes {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Exemple %d (%s) ---\n%s", n, sourceLabel(ex, n), content))
	}
	return strings.Join(parts, "\n\n")
}

// truncate cuts long texts at the last full stop past minSentenceCut, else hard at the limit.
func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= maxExampleRunes {
		return content
	}
	head := runes[:maxExampleRunes]
	cut := -1
	for i := len(head) - 1; i >= 0; i-- {
		if head[i] == '.' {
			cut = i
			break
		}
	}
	if cut > minSentenceCut {
		return string(head[:cut+1])
	}
	return string(head) + "..."
}

func sourceLabel(ex models.Example, n int) string {
	if ex.Bare {
		return fmt.Sprintf("Exemple %d", n)
	}
	if ex.SourceFile == "" {
		return fmt.Sprintf("Rapport %d", n)
	}
	label := []rune(ex.SourceLabel())
	if len(label) > maxSourceRunes {
		return string(label[:shortSourceRunes]) + "..."
	}
	return string(label)
}

// ExamplesSection wraps a formatted few-shot block for insertion into a template.
func ExamplesSection(formatted string) string {
	return examplesHeader + "\n\n" + formatted + "\n\n" + examplesFooter
}

var insertionMarkers = []string{"RÈGLES DE RÉDACTION", "RÈGLES STRICTES", "Style:", "Rédige maintenant"}

// InsertExamples places the section before the first occurrence of the first marker
// present in the template, or appends it.
func InsertExamples(template, formatted string) string {
	if formatted == "" || referencesExamples(template) {
		return template
	}
	section := ExamplesSection(formatted)
	for _, marker := range insertionMarkers {
		if idx := strings.Index(template, marker); idx >= 0 {
			return template[:idx] + section + "\n\n" + template[idx:]
		}
	}
	return template + "\n\n" + section
}

func referencesExamples(template string) bool {
	return strings.Contains(template, "{{ examples }}") || strings.Contains(template, "{% if examples %}")
}
