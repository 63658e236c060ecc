package integrator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/tracelog"
)

func snapshot(t *testing.T, r models.ReportData) string {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return string(b)
}

func TestIntegrate_CreatesPath(t *testing.T) {
	i := New(logger.NewTestLogger(t)).WithResolver(func(string) ([]string, bool) {
		return []string{"a", "b", "c"}, true
	})
	out, problems := i.Integrate(models.ReportData{}, map[string]string{"x": "text"})

	assert.Empty(t, problems)
	assert.Equal(t, models.ReportData{"a": map[string]interface{}{"b": map[string]interface{}{"c": "text"}}}, out)
}

func TestIntegrate_DoesNotMutateInput(t *testing.T) {
	report := models.ReportData{
		"metadonnees": map[string]interface{}{"titre": "Port"},
		"donnees_entree": map[string]interface{}{
			"conditions_environnementales": map[string]interface{}{
				"houle": map[string]interface{}{"commentaire": "ancien", "valeurs_retenues": "Hs 2 m"},
			},
		},
		"simulations": map[string]interface{}{"simulations": []interface{}{map[string]interface{}{"resultat": "Réussite"}}},
	}
	before := snapshot(t, report)

	out, problems := New(nil).Integrate(report, map[string]string{
		"donnees_entree_houle": "La houle est modérée sur le site.",
		"conclusion":           "Conclusion de l'étude.",
	})

	assert.Empty(t, problems)
	assert.Equal(t, before, snapshot(t, report))
	assert.Equal(t, "La houle est modérée sur le site.",
		out.String("donnees_entree", "conditions_environnementales", "houle", "commentaire"))
	assert.Equal(t, "Hs 2 m", out.String("donnees_entree", "conditions_environnementales", "houle", "valeurs_retenues"))
	assert.Equal(t, "Conclusion de l'étude.", out.String("conclusion"))

	sims := out.List("simulations", "simulations")
	sims[0].(map[string]interface{})["resultat"] = "Échec"
	assert.Equal(t, before, snapshot(t, report))
}

func TestIntegrate_Problems(t *testing.T) {
	report := models.ReportData{
		"donnees_navires": "not a mapping",
	}
	rec := tracelog.NewRecorder(nil)
	out, problems := New(nil).WithTracer(rec).Integrate(report, map[string]string{
		"navires":      "Les navires de projet sont décrits ci-dessous.",
		"annexe":       "Texte sans destination.",
		"analyse":      " x ",
		"introduction": "Introduction valide du rapport.",
		"remorqueurs":  "Deux remorqueurs de 60 t assistent les manœuvres.",
	})

	require.Len(t, problems, 4)
	byName := map[string]*IntegrationError{}
	for _, p := range problems {
		byName[p.Section] = p
	}

	assert.ErrorIs(t, byName["analyse"], ErrEmptyContent)
	assert.ErrorIs(t, byName["annexe"], ErrUnmappedSection)
	assert.ErrorIs(t, byName["navires"], ErrPathConflict)
	assert.ErrorIs(t, byName["remorqueurs"], ErrPathConflict)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, byName["annexe"], &stdErr)
	assert.Equal(t, apperrors.ErrCodeUnmappedSection, stdErr.Code)

	assert.Equal(t, "Introduction valide du rapport.", out.String("introduction", "guidelines"))
	assert.Equal(t, "not a mapping", out["donnees_navires"])

	tr := rec.Finish()
	assert.Len(t, tr.SectionsIntegrated, 1)
	assert.Equal(t, 3, tr.Stats.TotalWarnings)
}

func TestIntegrate_OverwritesScalarLeaf(t *testing.T) {
	out, problems := New(nil).Integrate(models.ReportData{"conclusion": map[string]interface{}{"old": true}},
		map[string]string{"conclusion": "Nouvelle conclusion."})
	assert.Empty(t, problems)
	assert.Equal(t, "Nouvelle conclusion.", out["conclusion"])
}

func TestOrder(t *testing.T) {
	got := order(map[string]string{"zeta": "", "conclusion": "", "alpha": "", "introduction": ""})
	assert.Equal(t, []string{"introduction", "conclusion", "alpha", "zeta"}, got)
}

func TestDeepCopy_Nil(t *testing.T) {
	assert.Equal(t, models.ReportData{}, DeepCopy(nil))
}
