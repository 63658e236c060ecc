// Package debugdump writes rendered prompts and generated texts of one run to disk
// for inspection. Every write is best effort.
package debugdump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"report-workers/internal/common/logger"
)

const timestampLayout = "20060102_150405"

// Dumper receives the artifacts of a run.
type Dumper interface {
	Prompt(section, rendered string)
	Generated(section, text string)
	Dir() string
}

// Nop discards everything.
type Nop struct{}

func (Nop) Prompt(string, string)    {}
func (Nop) Generated(string, string) {}
func (Nop) Dir() string              { return "" }

// RunDir writes into <root>/<YYYYmmdd_HHMMSS>_<runid8>.
type RunDir struct {
	dir string
	now func() time.Time
	log logger.Logger
}

// NewRunDir creates the run directory. When root is empty or the directory cannot be
// created, a Nop dumper is returned and the failure is logged.
func NewRunDir(root, runID string, now func() time.Time, log logger.Logger) Dumper {
	log = logger.OrNoOp(log)
	if root == "" {
		return Nop{}
	}
	if now == nil {
		now = time.Now
	}
	if len(runID) > 8 {
		runID = runID[:8]
	}
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", now().Format(timestampLayout), runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("Cannot create debug directory", map[string]interface{}{"dir": dir, "error": err.Error()})
		return Nop{}
	}
	log.Debug("Debug dumps enabled", map[string]interface{}{"dir": dir})
	return &RunDir{dir: dir, now: now, log: log}
}

func (d *RunDir) Dir() string { return d.dir }

// Prompt writes <section>_<timestamp>.txt.
func (d *RunDir) Prompt(section, rendered string) {
	d.write(fmt.Sprintf("%s_%s.txt", section, d.now().Format(timestampLayout)), rendered)
}

// Generated writes <section>_generated.txt, replacing a previous dump of the same section.
func (d *RunDir) Generated(section, text string) {
	d.write(section+"_generated.txt", text)
}

func (d *RunDir) write(name, content string) {
	path := filepath.Join(d.dir, filepath.Base(name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		d.log.Debug("Debug dump failed", map[string]interface{}{"path": path, "error": err.Error()})
	}
}

type ctxKey struct{}

// WithContext attaches the run's dumper to ctx.
func WithContext(ctx context.Context, d Dumper) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the run's dumper, or Nop.
func FromContext(ctx context.Context) Dumper {
	if d, ok := ctx.Value(ctxKey{}).(Dumper); ok && d != nil {
		return d
	}
	return Nop{}
}
