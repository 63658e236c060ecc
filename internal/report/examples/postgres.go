// internal/report/examples/postgres.go
package examples

import (
	"context"
	"database/sql"
	"fmt"

	"report-workers/internal/common/database"
	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/models"
)

const (
	latestMetadataQuery = `SELECT training_type, COALESCE(version, ''), COALESCE(created_at::text, '')
		FROM training_metadata ORDER BY created_at DESC LIMIT 1`

	examplesQuery = `SELECT section, content, COALESCE(source_file, ''), quality_score
		FROM training_examples WHERE training_type = $1 ORDER BY section, position`
)

// PostgresSource reads the tables the training job writes when it runs against the
// shared database instead of the local cache directory. Rows with a NULL section or
// content are skipped.
type PostgresSource struct {
	client *database.PostgresClient
}

func NewPostgresSource(client *database.PostgresClient) *PostgresSource {
	return &PostgresSource{client: client}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Fetch(ctx context.Context) (*models.ExampleCache, error) {
	var meta models.TrainingMetadata
	err := s.client.QueryRow(ctx, latestMetadataQuery).Scan(&meta.TrainingType, &meta.Version, &meta.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: training_metadata has no rows", ErrArtifactMissing)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("training_metadata", err)
	}

	rows, err := s.client.Query(ctx, examplesQuery, meta.TrainingType)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("training_examples", err)
	}
	defer rows.Close()

	cache := &models.ExampleCache{TrainingType: meta.TrainingType, Sections: map[string][]models.Example{}}
	for rows.Next() {
		var (
			section sql.NullString
			content sql.NullString
			ex      models.Example
			quality sql.NullFloat64
		)
		if err := rows.Scan(&section, &content, &ex.SourceFile, &quality); err != nil {
			return nil, fmt.Errorf("scan training example: %w", err)
		}
		if !section.Valid || section.String == "" || !content.Valid {
			continue
		}
		ex.Content = content.String
		if quality.Valid {
			q := quality.Float64
			ex.QualityScore = &q
		}
		cache.Sections[section.String] = append(cache.Sections[section.String], ex)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("training_examples", err)
	}
	return cache, nil
}
