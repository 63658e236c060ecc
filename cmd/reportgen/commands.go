// cmd/reportgen/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"report-workers/internal/common/config"
	"report-workers/internal/common/logger"
	"report-workers/internal/models"
	"report-workers/internal/report/orchestrator"
	"report-workers/internal/report/pipeline"
	"report-workers/internal/report/sections"
)

type generateOptions struct {
	input    string
	output   string
	sections []string
	quiet    bool
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sections for a report data file and write the enriched report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			in, err := os.Open(opts.input)
			if err != nil {
				return err
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			if opts.output != "" && opts.output != "-" {
				f, err := os.Create(opts.output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			var progress io.Writer = cmd.ErrOrStderr()
			if opts.quiet {
				progress = io.Discard
			}
			return runGenerate(contextOf(cmd), cfg, newLogger(), in, out, progress, opts.sections)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Report data JSON file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "Where to write the enriched report")
	cmd.Flags().StringSliceVarP(&opts.sections, "sections", "s", nil, "Sections to generate (default: all)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show few-shot and generation endpoint readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			p, err := pipeline.New(cfg, newLogger(), pipeline.Deps{})
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), p.Status(contextOf(cmd)))
		},
	}
}

func newSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the known sections and where they land in the report",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, name := range sections.Names() {
				path, _ := sections.PathOf(name)
				fmt.Fprintf(out, "%-28s %s\n", name, strings.Join(path, "."))
			}
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// consoleProgress prints progress lines; it never asks the run to stop.
type consoleProgress struct {
	out io.Writer
}

func (p consoleProgress) Update(step int, phase, detail string) bool {
	fmt.Fprintf(p.out, "[%3d%%] %s: %s\n", step, phase, detail)
	return true
}

func (p consoleProgress) LogDetail(detail string) {
	fmt.Fprintf(p.out, "       %s\n", detail)
}

func runGenerate(ctx context.Context, cfg *config.Config, log logger.Logger, in io.Reader, out, progress io.Writer, names []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var report models.ReportData
	if err := json.NewDecoder(in).Decode(&report); err != nil {
		return fmt.Errorf("read report data: %w", err)
	}
	if report == nil {
		return fmt.Errorf("read report data: expected a JSON object")
	}

	p, err := pipeline.New(cfg, log, pipeline.Deps{})
	if err != nil {
		return err
	}

	res := p.Run(ctx, report, orchestrator.Request{
		Sections: names,
		Progress: consoleProgress{out: progress},
	})
	s := res.Statistics
	fmt.Fprintf(progress, "Sections: %d réussies, %d en fallback, %d en échec (%d avec exemples)\n",
		s.Success, s.Fallback, s.Failed, s.WithExamples)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res.ReportData)
}

func printStatus(out io.Writer, st orchestrator.SystemStatus) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(st)
}
