// cmd/reportgen/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"report-workers/internal/common/config"
	"report-workers/internal/common/logger"
)

var (
	rootCmd = &cobra.Command{
		Use:   "reportgen",
		Short: "Generate the narrative sections of a maneuverability study",
	}
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSectionsCmd())
	rootCmd.AddCommand(newRegistryCmd())
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newLogger() logger.Logger {
	return logger.NewStructured(logLevel, "console", "stderr")
}
