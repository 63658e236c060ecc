// internal/models/example.go
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// TrainingTypeGranular is the only example cache format the generator consumes.
const TrainingTypeGranular = "granular_v2"

// Example is one historical text snippet written by the training job.
type Example struct {
	Content      string   `json:"content,omitempty"`
	Text         string   `json:"text,omitempty"`
	Extract      string   `json:"extract,omitempty"`
	SourceFile   string   `json:"source_file,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	Score        *float64 `json:"score,omitempty"`

	// Bare is set when the artifact stored the example as a plain string.
	Bare bool `json:"-"`
}

type exampleAlias Example

func (e *Example) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*e = Example{Content: s, Bare: true}
		return nil
	}
	var a struct {
		exampleAlias
		QualityScore json.RawMessage `json:"quality_score,omitempty"`
		Score        json.RawMessage `json:"score,omitempty"`
	}
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*e = Example(a.exampleAlias)
	e.QualityScore = parseScore(a.QualityScore)
	e.Score = parseScore(a.Score)
	return nil
}

// parseScore accepts numbers and numeric strings. Any other non-null value still
// counts as present, with score 0.
func parseScore(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	zero := 0.0
	return &zero
}

// Body returns the first non-empty of content, text and extract.
func (e Example) Body() string {
	for _, s := range []string{e.Content, e.Text, e.Extract} {
		if s != "" {
			return s
		}
	}
	return ""
}

// TrainingMetadata is the metadata artifact; only training_type is required.
type TrainingMetadata struct {
	TrainingType string `json:"training_type"`
	CreatedAt    string `json:"created_at,omitempty"`
	Version      string `json:"version,omitempty"`
}

// ExampleCache maps a section name to its stored examples, in stored order.
type ExampleCache struct {
	TrainingType string
	Sections     map[string][]Example
}

// Total counts every stored example.
func (c *ExampleCache) Total() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, list := range c.Sections {
		n += len(list)
	}
	return n
}

// SectionNames lists the sections with at least one example.
func (c *ExampleCache) SectionNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Sections))
	for name, list := range c.Sections {
		if len(list) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// SourceLabel is the cleaned source file name used in few-shot headers.
func (e Example) SourceLabel() string {
	s := strings.ReplaceAll(e.SourceFile, ".docx", "")
	return strings.ReplaceAll(s, ".pdf", "")
}
