// cmd/reportgen/registry.go
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"report-workers/internal/common/validation"
	gs "report-workers/internal/workers/report/generate-sections"
	"report-workers/pkg/registry"
)

func newRegistryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Check the activity registry used by the Zeebe worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkRegistry(path, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "configs/activity-registry.json", "Path to the registry file")
	return cmd
}

// checkRegistry compiles every declared schema and requires an entry for the section worker.
func checkRegistry(path string, out io.Writer) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}

	for _, a := range reg.Activities {
		for kind, schema := range map[string]map[string]interface{}{"input": a.InputSchema, "output": a.OutputSchema} {
			if schema == nil {
				continue
			}
			if _, err := validation.Compile(schema); err != nil {
				return fmt.Errorf("activity %s: invalid %s schema: %w", a.ID, kind, err)
			}
		}
		fmt.Fprintf(out, "%-28s %-28s timeout=%s retries=%d\n", a.ID, a.TaskType, a.Timeout, a.Retries)
	}

	if _, ok := reg.FindByTaskType(gs.TaskType); !ok {
		return fmt.Errorf("no activity registered for task type %s", gs.TaskType)
	}
	return nil
}
