// Package sections holds the fixed table of generated report sections: where each
// text lands in the report tree, how to fall back when generation yields nothing,
// and which typed context a section's prompt is rendered with.
package sections

import (
	"fmt"
	"strings"

	"report-workers/internal/models"
)

// Category selects the typed prompt context a section receives.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryEnvironment
	CategoryShips
	CategorySimulations
)

// FallbackFunc derives text from live report fields; ok is false when the fields are absent.
type FallbackFunc func(report models.ReportData) (text string, ok bool)

// Section describes one generated subsection.
type Section struct {
	Name     string
	Path     []string
	Category Category
	// Instruction is the one-line prompt used when no template renders; %s is the quoted title.
	Instruction string
	// Canned is the static fallback sentence.
	Canned   string
	Fallback FallbackFunc
	Refusal  RefusalDetector
}

const (
	defaultPromptTitle   = "Étude de manœuvrabilité"
	defaultFallbackTitle = "Étude"
)

// Table is the ordered section table. The order is the default generation order.
var Table = []Section{
	{
		Name:        "introduction",
		Path:        []string{"introduction", "guidelines"},
		Instruction: `Rédige l'introduction pour un rapport de manœuvrabilité intitulé "%s". Inclus: contexte, objectifs, méthodologie.`,
		Fallback:    fallbackIntroduction,
	},
	{
		Name:        "analyse",
		Path:        []string{"analyse_synthese", "commentaire"},
		Category:    CategorySimulations,
		Instruction: `Analyse les résultats de l'étude "%s".`,
		Fallback:    fallbackAnalyse,
	},
	{
		Name:     "analyse_stats",
		Path:     []string{"analyse_synthese", "stats_text"},
		Category: CategorySimulations,
		Canned:   "Statistiques des simulations : taux de réussite, répartition par manœuvre.",
	},
	{
		Name:     "analyse_recommandations",
		Path:     []string{"analyse_synthese", "recommandations_text"},
		Category: CategorySimulations,
		Canned:   "Recommandations : seuils météo, configuration remorqueurs.",
	},
	{
		Name:     "donnees_entree_intro",
		Path:     []string{"donnees_entree", "introduction"},
		Category: CategoryEnvironment,
		Canned:   "Cette section présente les données d'entrée de l'étude.",
	},
	{
		Name:     "donnees_entree_plan_masse",
		Path:     []string{"donnees_entree", "plan_de_masse", "commentaire"},
		Category: CategoryEnvironment,
		Canned:   "Le plan de masse présente l'aménagement portuaire étudié.",
	},
	{
		Name:        "donnees_entree_bathymetrie",
		Path:        []string{"donnees_entree", "bathymetrie", "commentaire"},
		Category:    CategoryEnvironment,
		Instruction: `Présente les données bathymétriques pour l'étude "%s". Inclus: source, profondeurs, caractéristiques.`,
		Canned:      "La bathymétrie a été établie à partir de relevés récents.",
		Fallback:    fallbackBathymetrie,
	},
	{
		Name:     "donnees_entree_balisage",
		Path:     []string{"donnees_entree", "balisage", "commentaire"},
		Category: CategoryEnvironment,
		Canned:   "Le plan de balisage définit la signalisation maritime.",
	},
	{
		Name:        "donnees_entree_conditions_intro",
		Path:        []string{"donnees_entree", "conditions_environnementales", "introduction"},
		Category:    CategoryEnvironment,
		Instruction: `Rédige l'introduction des conditions environnementales pour l'étude "%s".`,
		Canned:      "Les conditions environnementales influencent la manœuvrabilité.",
	},
	{
		Name:        "donnees_entree_houle",
		Path:        conditionPath("houle"),
		Category:    CategoryEnvironment,
		Instruction: `Décris les conditions de houle pour l'étude "%s".`,
		Canned:      "Les conditions de houle correspondent aux états de mer caractéristiques.",
		Fallback:    conditionFallback("houle", "Les conditions de houle retenues sont: %s."),
	},
	{
		Name:     "donnees_entree_vent",
		Path:     conditionPath("vent"),
		Category: CategoryEnvironment,
		Canned:   "Les données de vent représentent les conditions météorologiques locales.",
		Fallback: conditionFallback("vent", "Les conditions de vent considérées sont: %s."),
	},
	{
		Name:     "donnees_entree_courant",
		Path:     conditionPath("courant"),
		Category: CategoryEnvironment,
		Canned:   "Les conditions de courant intègrent les effets de marée.",
		Fallback: conditionFallback("courant", "Les conditions de courant retenues sont: %s."),
	},
	{
		Name:     "donnees_entree_maree",
		Path:     conditionPath("maree"),
		Category: CategoryEnvironment,
		Canned:   "Le régime de marée définit les variations du niveau d'eau.",
		Fallback: conditionFallback("maree", "Les conditions de marée considérées sont: %s."),
	},
	{
		Name:     "donnees_entree_agitation",
		Path:     conditionPath("agitation"),
		Category: CategoryEnvironment,
		Canned:   "L'agitation résiduelle influence les conditions de manœuvre.",
		Fallback: conditionFallback("agitation", "L'agitation résiduelle est estimée à: %s."),
	},
	{
		Name:     "donnees_entree_synthese",
		Path:     []string{"donnees_entree", "conditions_environnementales", "synthese"},
		Category: CategoryEnvironment,
		Canned:   "La synthèse des données permet de définir les conditions représentatives.",
	},
	{
		Name:        "navires",
		Path:        []string{"donnees_navires", "introduction"},
		Category:    CategoryShips,
		Instruction: `Présente les navires sélectionnés pour l'étude "%s".`,
		Canned:      "La sélection des navires représente les catégories appelées à fréquenter le port.",
		Fallback:    fallbackNavires,
		Refusal:     DefaultRefusalPhrases,
	},
	{
		Name:     "remorqueurs",
		Path:     []string{"donnees_navires", "remorqueurs_intro"},
		Category: CategoryShips,
		Canned:   "Les moyens d'assistance comprennent des remorqueurs adaptés.",
	},
	{
		Name:        "simulations",
		Path:        []string{"simulations", "description"},
		Category:    CategorySimulations,
		Instruction: `Décris la méthodologie des simulations pour l'étude "%s".`,
		Canned:      "La méthodologie repose sur une approche numérique temps réel.",
		Fallback:    fallbackSimulations,
	},
	{
		Name:     "scenarios_urgence",
		Path:     []string{"simulations", "scenarios_urgence_description"},
		Category: CategorySimulations,
		Canned:   "Les scénarios d'urgence évaluent la réaction en cas de défaillance.",
	},
	{
		Name:        "conclusion",
		Path:        []string{"conclusion"},
		Instruction: `Rédige la conclusion de l'étude "%s" avec recommandations.`,
		Fallback:    fallbackConclusion,
	},
}

var byName = func() map[string]*Section {
	m := make(map[string]*Section, len(Table))
	for i := range Table {
		m[Table[i].Name] = &Table[i]
	}
	return m
}()

func conditionPath(kind string) []string {
	return []string{"donnees_entree", "conditions_environnementales", kind, "commentaire"}
}

// Lookup returns the section spec for name.
func Lookup(name string) (*Section, bool) {
	s, ok := byName[name]
	return s, ok
}

// Names returns section names in table order.
func Names() []string {
	out := make([]string, len(Table))
	for i, s := range Table {
		out[i] = s.Name
	}
	return out
}

// PathOf returns a copy of the integration path for name.
func PathOf(name string) ([]string, bool) {
	s, ok := byName[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s.Path...), true
}

// FallbackPrompt is the synthetic one-line prompt used when no template renders.
func FallbackPrompt(name string, report models.ReportData) string {
	title := report.Title(defaultPromptTitle)
	if s, ok := byName[name]; ok && s.Instruction != "" {
		return fmt.Sprintf(s.Instruction, title)
	}
	return fmt.Sprintf("Rédige la section %s pour l'étude %s.", name, title)
}

// FallbackText walks the deterministic ladder: live-field fallback, canned sentence,
// then a generic sentence naming the section and report title.
func FallbackText(name string, report models.ReportData) string {
	if s, ok := byName[name]; ok {
		if s.Fallback != nil {
			if text, ok := s.Fallback(report); ok && strings.TrimSpace(text) != "" {
				return text
			}
		}
		if s.Canned != "" {
			return s.Canned
		}
	}
	return GenericFallback(name, report)
}

// GenericFallback never fails; it is the last rung of the ladder.
func GenericFallback(name string, report models.ReportData) string {
	return fmt.Sprintf("Section %s de l'étude %s.", name, report.Title(defaultFallbackTitle))
}
