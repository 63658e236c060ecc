// internal/workers/report/generate-sections/models.go
package generatesections

import "report-workers/internal/report/orchestrator"

type Input struct {
	ReportData    map[string]interface{} `json:"reportData"`
	Sections      []string               `json:"sections,omitempty"`
	ProgressStart *int                   `json:"progressStart,omitempty"`
	ProgressEnd   *int                   `json:"progressEnd,omitempty"`
}

type Output struct {
	ReportData        map[string]interface{}     `json:"reportData"`
	GeneratedSections map[string]string          `json:"generatedSections"`
	Statistics        orchestrator.RunStatistics `json:"statistics"`
	Stopped           bool                       `json:"stopped"`
}
