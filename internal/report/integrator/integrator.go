// Package integrator writes generated section texts into a copy of the report tree.
package integrator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "report-workers/internal/common/errors"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/models"
	"report-workers/internal/report/sections"
	"report-workers/internal/report/tracelog"
)

const minContentRunes = 2

var (
	ErrEmptyContent    = errors.New("empty content")
	ErrUnmappedSection = errors.New("unmapped section")
	ErrPathConflict    = errors.New("path conflict")
)

// IntegrationError describes one section that was not written.
type IntegrationError struct {
	Section string
	Path    []string
	Err     error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integrate %s: %v", e.Section, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// PathResolver maps a section to its integration path.
type PathResolver func(section string) ([]string, bool)

type Integrator struct {
	resolve PathResolver
	log     logger.Logger
	tracer  tracelog.Tracer
}

func New(log logger.Logger) *Integrator {
	return &Integrator{resolve: sections.PathOf, log: logger.OrNoOp(log), tracer: tracelog.Nop{}}
}

// WithTracer returns a copy recording integrations to t.
func (i *Integrator) WithTracer(t tracelog.Tracer) *Integrator {
	cp := *i
	if t == nil {
		t = tracelog.Nop{}
	}
	cp.tracer = t
	return &cp
}

// WithResolver returns a copy using a different path table.
func (i *Integrator) WithResolver(r PathResolver) *Integrator {
	cp := *i
	cp.resolve = r
	return &cp
}

// Integrate returns a deep copy of report with every usable text written at its path.
// The input is never modified. Sections are written in table order, then the
// remaining names sorted.
func (i *Integrator) Integrate(report models.ReportData, generated map[string]string) (models.ReportData, []*IntegrationError) {
	out := DeepCopy(report)
	var problems []*IntegrationError

	for _, name := range order(generated) {
		if err := i.integrateOne(out, name, generated[name]); err != nil {
			problems = append(problems, err)
			if !errors.Is(err, ErrEmptyContent) {
				metrics.IntegrationErrors.WithLabelValues(codeOf(err)).Inc()
				i.tracer.Warning(err.Error())
			}
		}
	}

	i.log.Info("Sections integrated", map[string]interface{}{
		"generated": len(generated),
		"skipped":   len(problems),
	})
	return out, problems
}

func (i *Integrator) integrateOne(out models.ReportData, name, text string) (ie *IntegrationError) {
	log := i.log.With(map[string]interface{}{"section": name})
	defer func() {
		if r := recover(); r != nil {
			ie = &IntegrationError{Section: name, Err: apperrors.NewInternalError(fmt.Errorf("%v", r))}
			log.Error("Integration panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
		}
	}()

	if len([]rune(strings.TrimSpace(text))) < minContentRunes {
		log.Debug("Empty section text skipped", nil)
		return &IntegrationError{Section: name, Err: ErrEmptyContent}
	}

	path, ok := i.resolve(name)
	if !ok || len(path) == 0 {
		log.Warn("Generated section has no integration path, text dropped", map[string]interface{}{"chars": len([]rune(text))})
		return &IntegrationError{Section: name, Err: apperrors.NewUnmappedSectionError(name, ErrUnmappedSection)}
	}

	node := map[string]interface{}(out)
	for idx, key := range path[:len(path)-1] {
		next, exists := node[key]
		if !exists || next == nil {
			child := map[string]interface{}{}
			node[key] = child
			node = child
			continue
		}
		child, isMap := models.AsMap(next)
		if !isMap {
			at := strings.Join(path[:idx+1], ".")
			log.Warn("Integration path blocked by a non-mapping value", map[string]interface{}{"key": at})
			return &IntegrationError{Section: name, Path: path, Err: apperrors.NewIntegrationPathConflictError(name, at, ErrPathConflict)}
		}
		node = child
	}
	node[path[len(path)-1]] = text
	i.tracer.Integrated(name, path, text)
	return nil
}

func order(generated map[string]string) []string {
	names := make([]string, 0, len(generated))
	seen := make(map[string]bool, len(generated))
	for _, s := range sections.Table {
		if _, ok := generated[s.Name]; ok {
			names = append(names, s.Name)
			seen[s.Name] = true
		}
	}
	var rest []string
	for name := range generated {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func codeOf(err error) string {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return string(apperrors.ErrCodeInternal)
}

// DeepCopy copies nested mappings and lists; scalars are shared.
func DeepCopy(report models.ReportData) models.ReportData {
	if report == nil {
		return models.ReportData{}
	}
	return models.ReportData(copyMap(report))
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case models.ReportData:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, item := range t {
			out[i] = copyMap(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
