// internal/report/examples/store.go
package examples

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
)

const DefaultCount = 2

// Summary describes the loaded cache.
type Summary struct {
	Loaded   bool `json:"loaded"`
	Sections int  `json:"sections"`
	Examples int  `json:"examples"`
}

// Store holds the example cache once a Source has been loaded successfully.
// It is safe to share between jobs.
type Store struct {
	source       Source
	defaultCount int
	expected     string
	log          logger.Logger

	mu        sync.RWMutex
	cache     *models.ExampleCache
	attempted bool
}

// Option configures a Store.
type Option func(*Store)

// WithExpectedVersion overrides the required training_type tag.
func WithExpectedVersion(version string) Option {
	return func(s *Store) {
		if version != "" {
			s.expected = version
		}
	}
}

func NewStore(source Source, defaultCount int, log logger.Logger, opts ...Option) *Store {
	if defaultCount <= 0 {
		defaultCount = DefaultCount
	}
	s := &Store{
		source:       source,
		defaultCount: defaultCount,
		expected:     models.TrainingTypeGranular,
		log:          logger.OrNoOp(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the cache from the source. On any failure the store stays unloaded
// and false is returned; a previously loaded cache is discarded.
func (s *Store) Load(ctx context.Context) bool {
	cache, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted = true
	if err != nil {
		s.cache = nil
		s.log.Warn("Example cache unavailable, generating without few-shot examples", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	s.cache = cache
	s.log.Info("Example cache loaded", map[string]interface{}{
		"source":   s.sourceName(),
		"sections": len(cache.Sections),
		"examples": cache.Total(),
	})
	return true
}

// EnsureLoaded loads the cache on first use only.
func (s *Store) EnsureLoaded(ctx context.Context) bool {
	s.mu.RLock()
	attempted, loaded := s.attempted, s.cache != nil
	s.mu.RUnlock()
	if attempted {
		return loaded
	}
	return s.Load(ctx)
}

func (s *Store) fetch(ctx context.Context) (cache *models.ExampleCache, err error) {
	if s.source == nil {
		return nil, apperrors.NewExamplesUnavailableError("none", ErrArtifactMissing)
	}
	defer func() {
		if r := recover(); r != nil {
			cache = nil
			err = apperrors.NewExamplesUnavailableError(s.source.Name(), fmt.Errorf("%w: panic: %v", ErrInvalidArtifact, r))
		}
	}()

	cache, err = s.source.Fetch(ctx)
	if err != nil {
		return nil, apperrors.NewExamplesUnavailableError(s.source.Name(), err)
	}
	if cache.TrainingType != s.expected {
		return nil, apperrors.NewExamplesVersionMismatchError(s.expected, cache.TrainingType)
	}
	if len(cache.Sections) == 0 {
		return nil, apperrors.NewExamplesUnavailableError(s.source.Name(), ErrEmptyCache)
	}
	return cache, nil
}

func (s *Store) sourceName() string {
	if s.source == nil {
		return "none"
	}
	return s.source.Name()
}

// Loaded reports whether a usable cache is held.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache != nil
}

// Examples returns up to n examples for section, best first. n <= 0 uses the default count.
func (s *Store) Examples(section string, n int) []models.Example {
	if n <= 0 {
		n = s.defaultCount
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return nil
	}

	list := s.lookup(section)
	if len(list) == 0 {
		return nil
	}

	out := append([]models.Example(nil), list...)
	first := out[0]
	switch {
	case first.Bare:
	case first.QualityScore != nil:
		sort.SliceStable(out, func(i, j int) bool { return scoreOf(out[i].QualityScore) > scoreOf(out[j].QualityScore) })
	case first.Score != nil:
		sort.SliceStable(out, func(i, j int) bool { return scoreOf(out[i].Score) > scoreOf(out[j].Score) })
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// HasExamples reports whether at least one example exists for section.
func (s *Store) HasExamples(section string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache != nil && len(s.lookup(section)) > 0
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return Summary{}
	}
	return Summary{Loaded: true, Sections: len(s.cache.Sections), Examples: s.cache.Total()}
}

// lookup tries the name as given, then the dash, underscore and lowercase variants.
func (s *Store) lookup(section string) []models.Example {
	if list := s.cache.Sections[section]; len(list) > 0 {
		return list
	}
	for _, alt := range []string{
		strings.ReplaceAll(section, "_", "-"),
		strings.ReplaceAll(section, "-", "_"),
		strings.ToLower(section),
	} {
		if list := s.cache.Sections[alt]; len(list) > 0 {
			return list
		}
	}
	return nil
}

func scoreOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
