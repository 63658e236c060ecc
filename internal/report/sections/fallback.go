// internal/report/sections/fallback.go
package sections

import (
	"fmt"
	"strings"

	"report-workers/internal/models"
)

const maxFallbackShips = 5

func fallbackIntroduction(report models.ReportData) (string, bool) {
	title := report.Title(defaultPromptTitle)
	client := report.StringOr("l'Autorité Portuaire", "metadonnees", "client")
	return fmt.Sprintf(`L'étude de manœuvrabilité intitulée "%s" a été réalisée pour %s. `, title, client) +
		"Cette étude vise à évaluer les capacités de manœuvre des navires dans les configurations portuaires étudiées.\n\n" +
		"Les objectifs principaux comprennent l'évaluation de la faisabilité des manœuvres d'accostage et d'appareillage, " +
		"l'identification des conditions environnementales critiques, et la définition des procédures d'assistance optimales.\n\n" +
		"La méthodologie employée s'appuie sur la modélisation numérique et la simulation de manœuvres représentatives " +
		"des conditions d'exploitation futures.", true
}

func fallbackAnalyse(report models.ReportData) (string, bool) {
	sims := NewSimulationContext(report)
	if sims.Count == 0 {
		return "L'analyse des simulations révèle les performances générales du système portuaire étudié.", true
	}
	return fmt.Sprintf("L'analyse des %d simulations révèle un taux de réussite de %s%%. ", sims.Count, sims.RateText()) +
		"Les configurations testées permettent d'évaluer la faisabilité des manœuvres dans diverses conditions.\n\n" +
		"Les résultats montrent l'importance de l'assistance par remorqueurs pour garantir la sécurité des opérations.", true
}

func fallbackConclusion(report models.ReportData) (string, bool) {
	title := report.Title(defaultPromptTitle)
	sims := NewSimulationContext(report)
	if sims.Count == 0 {
		return fmt.Sprintf(`L'étude "%s" a permis d'évaluer les conditions de manœuvrabilité et de formuler des recommandations opérationnelles.`, title), true
	}
	return fmt.Sprintf(`L'étude de manœuvrabilité "%s" a permis d'évaluer %d configurations de manœuvre avec un taux de réussite de %s%%.`, title, sims.Count, sims.RateText()) +
		"\n\nLes résultats confirment la faisabilité des opérations dans les conditions nominales définies. " +
		"Les recommandations formulées permettront d'optimiser la sécurité et l'efficacité des manœuvres.", true
}

func fallbackBathymetrie(report models.ReportData) (string, bool) {
	source := strings.TrimSpace(report.String("donnees_entree", "bathymetrie", "source"))
	if source == "" {
		return "", false
	}
	return fmt.Sprintf("La bathymétrie du site a été établie à partir de %s.", source), true
}

func conditionFallback(kind, format string) FallbackFunc {
	return func(report models.ReportData) (string, bool) {
		v := strings.TrimSpace(report.String("donnees_entree", "conditions_environnementales", kind, "valeurs_retenues"))
		if v == "" {
			return "", false
		}
		return fmt.Sprintf(format, v), true
	}
}

func fallbackNavires(report models.ReportData) (string, bool) {
	ships := NewShipContext(report)
	if len(ships.Ships) == 0 {
		return "", false
	}
	lines := []string{"La sélection des navires types couvre les unités attendues au port."}
	for i, ship := range ships.Ships {
		if i == maxFallbackShips {
			break
		}
		parts := []string{fmt.Sprintf("%s (%s)", ship.Name, ship.Type)}
		if ship.Length != "" {
			parts = append(parts, ship.Length+" m")
		}
		if ship.Draft != "" {
			parts = append(parts, "TE "+ship.Draft+" m")
		}
		lines = append(lines, " - "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n"), true
}

func fallbackSimulations(report models.ReportData) (string, bool) {
	sims := NewSimulationContext(report)
	if sims.Count == 0 {
		return "", false
	}
	return fmt.Sprintf("La méthodologie repose sur %d simulations numériques représentatives.", sims.Count), true
}
