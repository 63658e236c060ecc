// Package examples loads the few-shot example cache produced by the offline training
// job and serves per-section examples to the prompt assembler.
package examples

import (
	"context"
	"errors"

	"report-workers/internal/models"
)

var (
	ErrArtifactMissing = errors.New("example artifact missing")
	ErrInvalidArtifact = errors.New("example artifact invalid")
	ErrEmptyCache      = errors.New("example cache is empty")
)

// Source fetches the example cache. TrainingType carries the metadata version tag;
// the Store decides whether it is usable.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*models.ExampleCache, error)
}
