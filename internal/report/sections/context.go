// internal/report/sections/context.go
package sections

import (
	"fmt"

	"report-workers/internal/models"
)

const successOutcome = "Réussite"

var environmentKinds = []string{"houle", "vent", "courant", "maree", "agitation"}

// EnvironmentalContext carries the retained environmental values.
type EnvironmentalContext struct {
	BathymetrySource string
	Retained         map[string]string
}

func NewEnvironmentalContext(report models.ReportData) EnvironmentalContext {
	ctx := EnvironmentalContext{
		BathymetrySource: report.String("donnees_entree", "bathymetrie", "source"),
		Retained:         make(map[string]string, len(environmentKinds)),
	}
	for _, kind := range environmentKinds {
		if v := report.String("donnees_entree", "conditions_environnementales", kind, "valeurs_retenues"); v != "" {
			ctx.Retained[kind] = v
		}
	}
	return ctx
}

// Ship is one vessel of the fleet list.
type Ship struct {
	Name   string
	Type   string
	Length string
	Draft  string
}

// ShipContext summarizes ships and tugs.
type ShipContext struct {
	Ships []Ship
	Tugs  int
}

func NewShipContext(report models.ReportData) ShipContext {
	var ctx ShipContext
	for _, item := range report.List("donnees_navires", "navires", "navires") {
		m, ok := models.AsMap(item)
		if !ok {
			continue
		}
		ctx.Ships = append(ctx.Ships, Ship{
			Name:   orDefault(models.Scalar(m["nom"]), "Navire"),
			Type:   orDefault(models.Scalar(m["type"]), "Type"),
			Length: truthy(m["longueur"]),
			Draft:  truthy(m["tirant_eau_av"]),
		})
	}
	ctx.Tugs = len(report.List("donnees_navires", "remorqueurs", "remorqueurs"))
	return ctx
}

// SimulationContext counts simulation outcomes.
type SimulationContext struct {
	Count     int
	Successes int
}

func NewSimulationContext(report models.ReportData) SimulationContext {
	var ctx SimulationContext
	for _, item := range report.List("simulations", "simulations") {
		m, ok := models.AsMap(item)
		if !ok {
			continue
		}
		ctx.Count++
		if models.Scalar(m["resultat"]) == successOutcome {
			ctx.Successes++
		}
	}
	return ctx
}

// Rate is the success percentage; zero when there are no simulations.
func (s SimulationContext) Rate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Count) * 100
}

func (s SimulationContext) RateText() string {
	return fmt.Sprintf("%.1f", s.Rate())
}

// PromptContext builds the template variables for a section. Every section gets
// the title and client; the category decides which typed contexts are flattened in.
func PromptContext(name string, report models.ReportData) map[string]interface{} {
	vars := map[string]interface{}{
		"section":     name,
		"titre":       report.Title(defaultPromptTitle),
		"client":      report.StringOr("l'Autorité Portuaire", "metadonnees", "client"),
		"report_data": map[string]interface{}(report),
	}
	category := CategoryGeneral
	if s, ok := byName[name]; ok {
		category = s.Category
	}
	if category == CategoryGeneral || category == CategoryEnvironment {
		env := NewEnvironmentalContext(report)
		vars["bathymetrie_source"] = env.BathymetrySource
		for kind, v := range env.Retained {
			vars[kind] = v
		}
	}
	if category == CategoryGeneral || category == CategoryShips {
		ships := NewShipContext(report)
		vars["nb_navires"] = len(ships.Ships)
		vars["nb_remorqueurs"] = ships.Tugs
		names := make([]string, 0, len(ships.Ships))
		for _, ship := range ships.Ships {
			names = append(names, ship.Name)
		}
		vars["navires"] = names
	}
	if category == CategoryGeneral || category == CategorySimulations {
		sims := NewSimulationContext(report)
		vars["nb_simulations"] = sims.Count
		vars["nb_reussites"] = sims.Successes
		vars["taux_reussite"] = sims.RateText()
	}
	return vars
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// truthy drops zero, false and empty values.
func truthy(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		return ""
	case float64:
		if t == 0 {
			return ""
		}
	case int:
		if t == 0 {
			return ""
		}
	}
	return models.Scalar(v)
}
