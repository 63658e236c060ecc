package examples

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workers/internal/common/database"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
)

const granularMetadata = `{"training_type": "granular_v2", "created_at": "2024-05-01T10:00:00"}`

func writeArtifacts(t *testing.T, examples, metadata string) string {
	t.Helper()
	dir := t.TempDir()
	if examples != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "training_data_granular.json"), []byte(examples), 0o644))
	}
	if metadata != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "training_metadata_granular.json"), []byte(metadata), 0o644))
	}
	return dir
}

func newFileStore(t *testing.T, dir string) *Store {
	src := NewFileSource(dir, "training_data_granular.json", "training_metadata_granular.json")
	return NewStore(src, 0, logger.NewTestLogger(t))
}

func TestStore_LoadFailures(t *testing.T) {
	tests := []struct {
		name     string
		examples string
		metadata string
	}{
		{"missing examples", "", granularMetadata},
		{"missing metadata", `{"houle": ["x"]}`, ""},
		{"malformed examples", `{"houle": [`, granularMetadata},
		{"empty mapping", `{}`, granularMetadata},
		{"non-list section", `{"houle": "text"}`, granularMetadata},
		{"metadata without training_type", `{"houle": ["x"]}`, `{"version": "1"}`},
		{"version mismatch", `{"houle": ["x"]}`, `{"training_type": "legacy"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFileStore(t, writeArtifacts(t, tt.examples, tt.metadata))
			assert.False(t, store.Load(context.Background()))
			assert.False(t, store.Loaded())
			assert.Empty(t, store.Examples("houle", 2))
			assert.False(t, store.HasExamples("houle"))
			assert.Equal(t, Summary{}, store.Summary())
		})
	}
}

func TestStore_ExamplesOrdering(t *testing.T) {
	dir := writeArtifacts(t, `{
		"donnees_entree_houle": [
			{"content": "A", "quality_score": 0.2},
			{"content": "B", "quality_score": 0.9},
			{"content": "C"},
			{"content": "D", "quality_score": 0.5}
		],
		"vent": [
			{"text": "low", "score": 1},
			{"text": "high", "score": 5}
		],
		"courant": [
			{"content": "first"},
			{"content": "second", "quality_score": 0.9}
		],
		"bare-name": ["one", "two", "three"]
	}`, granularMetadata)
	store := newFileStore(t, dir)
	require.True(t, store.Load(context.Background()))

	bodies := func(list []models.Example) []string {
		out := make([]string, len(list))
		for i, e := range list {
			out[i] = e.Body()
		}
		return out
	}

	assert.Equal(t, []string{"B", "D"}, bodies(store.Examples("donnees_entree_houle", 2)))
	assert.Equal(t, []string{"B", "D", "A", "C"}, bodies(store.Examples("donnees_entree_houle", 10)))
	assert.Equal(t, []string{"high", "low"}, bodies(store.Examples("vent", 0)))
	// only the first example decides whether to sort
	assert.Equal(t, []string{"first", "second"}, bodies(store.Examples("courant", 2)))
	// variant lookup: underscores to dashes
	assert.Equal(t, []string{"one", "two"}, bodies(store.Examples("bare_name", 2)))
	assert.Equal(t, []string{"one"}, bodies(store.Examples("BARE-NAME", 1)))
	assert.Empty(t, store.Examples("absent", 2))

	assert.True(t, store.HasExamples("bare_name"))
	assert.Equal(t, Summary{Loaded: true, Sections: 4, Examples: 11}, store.Summary())
}

type countingSource struct {
	calls int
	cache *models.ExampleCache
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) Fetch(context.Context) (*models.ExampleCache, error) {
	c.calls++
	return c.cache, nil
}

func TestStore_EnsureLoadedOnce(t *testing.T) {
	src := &countingSource{cache: &models.ExampleCache{TrainingType: "legacy"}}
	store := NewStore(src, 2, nil)

	assert.False(t, store.EnsureLoaded(context.Background()))
	assert.False(t, store.EnsureLoaded(context.Background()))
	assert.Equal(t, 1, src.calls)

	src.cache = &models.ExampleCache{TrainingType: models.TrainingTypeGranular, Sections: map[string][]models.Example{
		"houle": {{Content: "x"}},
	}}
	assert.True(t, store.Load(context.Background()))
	assert.Equal(t, 2, src.calls)
}

func TestStore_NilCacheFromSource(t *testing.T) {
	store := NewStore(&countingSource{}, 2, nil)
	assert.False(t, store.Load(context.Background()))
}

func TestPostgresSource_Fetch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT training_type").
		WillReturnRows(sqlmock.NewRows([]string{"training_type", "version", "created_at"}).
			AddRow("granular_v2", "3", "2024-05-01"))
	mock.ExpectQuery("SELECT section, content").
		WithArgs("granular_v2").
		WillReturnRows(sqlmock.NewRows([]string{"section", "content", "source_file", "quality_score"}).
			AddRow("houle", "texte houle", "Rapport_A.docx", 0.7).
			AddRow("houle", "autre houle", "", nil).
			AddRow("vent", "texte vent", "Rapport_B.pdf", 0.4))

	store := NewStore(NewPostgresSource(database.NewPostgresFromDB(db)), 2, logger.NewTestLogger(t))
	require.True(t, store.Load(context.Background()))

	houle := store.Examples("houle", 5)
	require.Len(t, houle, 2)
	assert.Equal(t, "Rapport_A", houle[0].SourceLabel())
	assert.Nil(t, houle[1].QualityScore)
	assert.Equal(t, 3, store.Summary().Examples)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_NoMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT training_type").
		WillReturnRows(sqlmock.NewRows([]string{"training_type", "version", "created_at"}))

	src := NewPostgresSource(database.NewPostgresFromDB(db))
	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_SkipsNullRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT training_type").
		WillReturnRows(sqlmock.NewRows([]string{"training_type", "version", "created_at"}).
			AddRow("granular_v2", "", ""))
	mock.ExpectQuery("SELECT section, content").
		WithArgs("granular_v2").
		WillReturnRows(sqlmock.NewRows([]string{"section", "content", "source_file", "quality_score"}).
			AddRow("houle", nil, "", 0.9).
			AddRow(nil, "texte orphelin", "", nil).
			AddRow("houle", "texte houle", "", 0.5))

	cache, err := NewPostgresSource(database.NewPostgresFromDB(db)).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cache.Sections["houle"], 1)
	assert.Equal(t, "texte houle", cache.Sections["houle"][0].Content)
	assert.Len(t, cache.Sections, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT training_type").WillReturnError(errors.New("relation does not exist"))

	_, err = NewPostgresSource(database.NewPostgresFromDB(db)).Fetch(context.Background())
	var std *apperrors.StandardError
	require.True(t, errors.As(err, &std))
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, std.Code)
	assert.Contains(t, std.Details, "training_metadata")
}

func TestStore_ExpectedVersionOption(t *testing.T) {
	src := &countingSource{cache: &models.ExampleCache{TrainingType: "granular_v3", Sections: map[string][]models.Example{
		"houle": {{Content: "x"}},
	}}}
	assert.False(t, NewStore(src, 2, nil).Load(context.Background()))
	assert.True(t, NewStore(src, 2, nil, WithExpectedVersion("granular_v3")).Load(context.Background()))
}
