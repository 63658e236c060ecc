// Package prompt renders the per-section prompt from a Jinja-style template, the
// report data and few-shot examples.
package prompt

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/flosch/pongo2/v6"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/debugdump"
	"report-workers/internal/report/sections"
)

// FormatRules is injected into every template as regles_formatage.
const FormatRules = "- Pas de titres ni de HMTL ni de Markdown\n" +
	"- Pas de mise en forme (gras, listes longues)\n" +
	"- Style professionnel, phrases courtes\n" +
	"- N'invente pas de données absentes du contexte\n" +
	"- Écris en français professionnel, phrases fluides\n" +
	"- Commence directement par le contenu (pas de titre)\n" +
	"- Utilise un vocabulaire technique maritime précis\n"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ExampleProvider is the part of the example store the assembler needs.
type ExampleProvider interface {
	EnsureLoaded(ctx context.Context) bool
	Examples(section string, n int) []models.Example
}

type Assembler struct {
	dir      string
	examples ExampleProvider
	count    int
	log      logger.Logger
}

// NewAssembler reads templates from dir. examples may be nil.
func NewAssembler(dir string, examples ExampleProvider, count int, log logger.Logger) *Assembler {
	return &Assembler{
		dir:      dir,
		examples: examples,
		count:    count,
		log:      logger.OrNoOp(log),
	}
}

// Build never fails: when the template is missing or does not render, the
// one-line instruction prompt is returned instead. The rendered prompt is dumped
// through the run's dumper carried by ctx.
func (a *Assembler) Build(ctx context.Context, section string, report models.ReportData) string {
	formatted := a.fewShot(ctx, section)
	log := a.log.With(map[string]interface{}{"section": section})

	path := filepath.Join(a.dir, filepath.Base(section)+".txt")
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Prompt template unavailable, using instruction prompt", map[string]interface{}{
			"error": apperrors.NewPromptTemplateMissingError(section, err).Error(),
		})
		return sections.FallbackPrompt(section, report)
	}

	rendered, err := Render(InsertExamples(string(raw), formatted), a.Context(section, report, formatted))
	if err != nil {
		log.Warn("Prompt template failed to render, using instruction prompt", map[string]interface{}{
			"error": apperrors.NewPromptRenderFailedError(section, err).Error(),
		})
		return sections.FallbackPrompt(section, report)
	}

	debugdump.FromContext(ctx).Prompt(section, rendered)
	return rendered
}

func (a *Assembler) fewShot(ctx context.Context, section string) string {
	if a.examples == nil || !a.examples.EnsureLoaded(ctx) {
		return ""
	}
	list := a.examples.Examples(section, a.count)
	a.log.Debug("Few-shot examples selected", map[string]interface{}{"section": section, "count": len(list)})
	return FormatExamples(list)
}

// Context builds the template variables: the report's top-level keys, list aliases,
// the section's typed views, the few-shot block and the formatting rules.
func (a *Assembler) Context(section string, report models.ReportData, formatted string) pongo2.Context {
	ctx := pongo2.Context{}
	for k, v := range report {
		if identifier.MatchString(k) {
			ctx[k] = v
		}
	}

	if m := report.Map("analyse_synthese"); m != nil {
		ctx["analyse_synthese"] = m
	} else {
		ctx["analyse_synthese"] = map[string]interface{}{}
	}
	ctx["navires_liste"] = listOrEmpty(report.List("donnees_navires", "navires", "navires"))
	ctx["remorqueurs_liste"] = listOrEmpty(report.List("donnees_navires", "remorqueurs", "remorqueurs"))

	for k, v := range sections.PromptContext(section, report) {
		if _, exists := ctx[k]; !exists {
			ctx[k] = v
		}
	}

	ctx["examples"] = formatted
	ctx["has_examples"] = formatted != ""
	ctx["regles_formatage"] = FormatRules
	return ctx
}

// Render executes a template with HTML autoescaping disabled.
func Render(template string, ctx pongo2.Context) (string, error) {
	tpl, err := pongo2.FromString("{% autoescape off %}" + template + "{% endautoescape %}")
	if err != nil {
		return "", err
	}
	return tpl.Execute(ctx)
}

func listOrEmpty(l []interface{}) []interface{} {
	if l == nil {
		return []interface{}{}
	}
	return l
}
