// Package tracelog records what was generated and where it was integrated during one
// run, and writes a JSON trace plus a readable summary.
package tracelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"report-workers/internal/common/logger"
)

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"

	previewRunes = 200
	fileLayout   = "20060102_150405"
)

// Tracer is owned by a single run.
type Tracer interface {
	Start(title string)
	Generated(section, content, source string)
	Integrated(section string, path []string, content string)
	Warning(message string)
	Finish() *Trace
}

type GeneratedEntry struct {
	Content string `json:"content"`
	Length  int    `json:"length"`
	Source  string `json:"source"`
	Preview string `json:"preview"`
}

type IntegratedEntry struct {
	TargetPath     string `json:"target_path"`
	TargetVariable string `json:"target_variable"`
	Length         int    `json:"length"`
	Integrated     bool   `json:"integrated"`
}

type WarningEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type Stats struct {
	TotalGenerated     int    `json:"total_generated"`
	TotalIntegrated    int    `json:"total_integrated"`
	TotalNotIntegrated int    `json:"total_not_integrated"`
	IntegrationRate    string `json:"integration_rate"`
	TotalWarnings      int    `json:"total_warnings"`
}

type Trace struct {
	Timestamp             string                     `json:"timestamp"`
	ReportTitle           string                     `json:"rapport_title"`
	SectionsGenerated     map[string]GeneratedEntry  `json:"sections_generated"`
	SectionsIntegrated    map[string]IntegratedEntry `json:"sections_integrated"`
	SectionsNotIntegrated []string                   `json:"sections_not_integrated"`
	Warnings              []WarningEntry             `json:"warnings"`
	Stats                 Stats                      `json:"stats"`

	order []string
}

// Recorder keeps the trace in memory. It is the base of File and is usable on its own.
type Recorder struct {
	mu    sync.Mutex
	now   func() time.Time
	trace *Trace
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	r := &Recorder{now: now}
	r.Start("")
	return r
}

func (r *Recorder) Start(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = &Trace{
		Timestamp:          r.now().Format(time.RFC3339),
		ReportTitle:        title,
		SectionsGenerated:  map[string]GeneratedEntry{},
		SectionsIntegrated: map[string]IntegratedEntry{},
	}
}

func (r *Recorder) Generated(section, content, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.trace.SectionsGenerated[section]; !seen {
		r.trace.order = append(r.trace.order, section)
	}
	r.trace.SectionsGenerated[section] = GeneratedEntry{
		Content: content,
		Length:  len([]rune(content)),
		Source:  source,
		Preview: preview(content, previewRunes),
	}
}

func (r *Recorder) Integrated(section string, path []string, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := IntegratedEntry{
		TargetPath: strings.Join(path, " → "),
		Length:     len([]rune(content)),
		Integrated: true,
	}
	if len(path) > 0 {
		entry.TargetVariable = path[len(path)-1]
	}
	r.trace.SectionsIntegrated[section] = entry
}

func (r *Recorder) Warning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Warnings = append(r.trace.Warnings, WarningEntry{Timestamp: r.now().Format(time.RFC3339), Message: message})
}

// Finish computes the statistics and returns the trace.
func (r *Recorder) Finish() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.trace
	t.SectionsNotIntegrated = []string{}
	for _, name := range t.order {
		if _, ok := t.SectionsIntegrated[name]; !ok {
			t.SectionsNotIntegrated = append(t.SectionsNotIntegrated, name)
		}
	}
	t.Stats = Stats{
		TotalGenerated:     len(t.SectionsGenerated),
		TotalIntegrated:    len(t.SectionsIntegrated),
		TotalNotIntegrated: len(t.SectionsNotIntegrated),
		IntegrationRate:    "0%",
		TotalWarnings:      len(t.Warnings),
	}
	if len(t.SectionsGenerated) > 0 {
		t.Stats.IntegrationRate = fmt.Sprintf("%.1f%%", float64(len(t.SectionsIntegrated))/float64(len(t.SectionsGenerated))*100)
	}
	return t
}

// Nop records nothing.
type Nop struct{}

func (Nop) Start(string)                        {}
func (Nop) Generated(string, string, string)    {}
func (Nop) Integrated(string, []string, string) {}
func (Nop) Warning(string)                      {}
func (Nop) Finish() *Trace                      { return nil }

// File writes trace_<ts>.json and report_<ts>.txt into its directory on Finish.
type File struct {
	*Recorder
	dir string
	log logger.Logger
}

// New returns a File tracer, or Nop when dir is empty.
func New(dir string, now func() time.Time, log logger.Logger) Tracer {
	if dir == "" {
		return Nop{}
	}
	return &File{Recorder: NewRecorder(now), dir: dir, log: logger.OrNoOp(log)}
}

func (f *File) Finish() *Trace {
	t := f.Recorder.Finish()
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		f.log.Warn("Cannot create trace directory", map[string]interface{}{"dir": f.dir, "error": err.Error()})
		return t
	}

	ts := f.now().Format(fileLayout)
	data, err := json.MarshalIndent(t, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(f.dir, "trace_"+ts+".json"), data, 0o644)
	}
	if err != nil {
		f.log.Warn("Cannot write generation trace", map[string]interface{}{"error": err.Error()})
	}
	if err := os.WriteFile(filepath.Join(f.dir, "report_"+ts+".txt"), []byte(Readable(t)), 0o644); err != nil {
		f.log.Warn("Cannot write generation report", map[string]interface{}{"error": err.Error()})
	}

	if n := len(t.SectionsNotIntegrated); n > 0 {
		f.log.Warn("Generated sections were not integrated", map[string]interface{}{
			"count":    n,
			"sections": t.SectionsNotIntegrated,
		})
	}
	return t
}

// Readable renders the human summary of a finished trace.
func Readable(t *Trace) string {
	rule := strings.Repeat("=", 70)
	thin := strings.Repeat("-", 70)
	title := t.ReportTitle
	if title == "" {
		title = "N/A"
	}

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	header := func(name string) {
		line("%s", thin)
		line("%s", name)
		line("%s", thin)
	}

	line("%s", rule)
	line("RAPPORT DE GÉNÉRATION IA")
	line("%s", rule)
	line("Date: %s", t.Timestamp)
	line("Rapport: %s", title)
	line("")

	header("STATISTIQUES")
	line("Sections générées: %d", t.Stats.TotalGenerated)
	line("Sections intégrées: %d", t.Stats.TotalIntegrated)
	line("Sections NON intégrées: %d", t.Stats.TotalNotIntegrated)
	line("Taux d'intégration: %s", t.Stats.IntegrationRate)
	line("")

	header("SECTIONS GÉNÉRÉES")
	for _, name := range t.generatedNames() {
		data := t.SectionsGenerated[name]
		mark := "❌"
		if _, ok := t.SectionsIntegrated[name]; ok {
			mark = "✅"
		}
		line("%s %s", mark, name)
		line("   Source: %s", data.Source)
		line("   Longueur: %d caractères", data.Length)
		line("   Aperçu: %s...", truncateRunes(data.Preview, 100))
		line("")
	}

	if len(t.SectionsNotIntegrated) > 0 {
		header("SECTIONS NON INTÉGRÉES (CONTENU PERDU)")
		for _, name := range t.SectionsNotIntegrated {
			data := t.SectionsGenerated[name]
			line("❌ %s", name)
			line("   Contenu (%d chars):", data.Length)
			line("   %s", truncateRunes(data.Content, 500))
			line("")
		}
	}

	header("MAPPINGS D'INTÉGRATION")
	integrated := make([]string, 0, len(t.SectionsIntegrated))
	for name := range t.SectionsIntegrated {
		integrated = append(integrated, name)
	}
	sort.Strings(integrated)
	for _, name := range integrated {
		data := t.SectionsIntegrated[name]
		line("✅ %s", name)
		line("   → %s", data.TargetPath)
		line("   Variable finale: %s", data.TargetVariable)
		line("")
	}

	if len(t.Warnings) > 0 {
		header("AVERTISSEMENTS")
		for _, w := range t.Warnings {
			line("- %s", w.Message)
		}
		line("")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (t *Trace) generatedNames() []string {
	if len(t.order) == len(t.SectionsGenerated) {
		return t.order
	}
	names := make([]string, 0, len(t.SectionsGenerated))
	for name := range t.SectionsGenerated {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func preview(s string, n int) string {
	if len([]rune(s)) > n {
		return truncateRunes(s, n) + "..."
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
