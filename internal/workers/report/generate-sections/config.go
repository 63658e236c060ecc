// internal/workers/report/generate-sections/config.go
package generatesections

import (
	"time"

	"report-workers/internal/common/config"
	"report-workers/pkg/registry"
)

type Config struct {
	Timeout     time.Duration
	InputSchema map[string]interface{}
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}

// ConfigFrom takes the job timeout from the worker settings and the input schema
// from the activity registry entry of TaskType, when present.
func ConfigFrom(cfg *config.Config, reg *registry.ActivityRegistry) *Config {
	c := LoadConfig()
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	if reg != nil {
		if act, ok := reg.FindByTaskType(TaskType); ok {
			c.InputSchema = act.InputSchema
		}
	}
	return c
}
