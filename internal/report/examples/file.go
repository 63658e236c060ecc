// internal/report/examples/file.go
package examples

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"report-workers/internal/common/validation"
	"report-workers/internal/models"
)

const examplesSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "array",
    "items": {"type": ["string", "object"]}
  }
}`

const metadataSchema = `{
  "type": "object",
  "required": ["training_type"],
  "properties": {
    "training_type": {"type": "string"},
    "version": {"type": "string"},
    "created_at": {"type": "string"}
  }
}`

var (
	compiledExamplesSchema = mustCompile(examplesSchema)
	compiledMetadataSchema = mustCompile(metadataSchema)
)

func mustCompile(schema string) *validation.Schema {
	s, err := validation.CompileJSON(schema)
	if err != nil {
		panic(err)
	}
	return s
}

// FileSource reads the two JSON artifacts from the cache directory.
type FileSource struct {
	Directory    string
	ExamplesFile string
	MetadataFile string
}

func NewFileSource(directory, examplesFile, metadataFile string) *FileSource {
	return &FileSource{Directory: directory, ExamplesFile: examplesFile, MetadataFile: metadataFile}
}

func (s *FileSource) Name() string { return "file:" + s.Directory }

func (s *FileSource) Fetch(ctx context.Context) (*models.ExampleCache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawExamples, err := s.read(s.ExamplesFile, compiledExamplesSchema)
	if err != nil {
		return nil, err
	}
	rawMetadata, err := s.read(s.MetadataFile, compiledMetadataSchema)
	if err != nil {
		return nil, err
	}

	var meta models.TrainingMetadata
	if err := json.Unmarshal(rawMetadata, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, s.MetadataFile, err)
	}
	sections := make(map[string][]models.Example)
	if err := json.Unmarshal(rawExamples, &sections); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, s.ExamplesFile, err)
	}

	return &models.ExampleCache{TrainingType: meta.TrainingType, Sections: sections}, nil
}

func (s *FileSource) read(name string, schema *validation.Schema) ([]byte, error) {
	path := filepath.Join(s.Directory, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := schema.ValidateBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidArtifact, path, strings.Join(result.GetErrorMessages(), "; "))
	}
	return data, nil
}
