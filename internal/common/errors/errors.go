// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeExamplesUnavailable     ErrorCode = "EXAMPLES_UNAVAILABLE"
	ErrCodeExamplesVersionMismatch ErrorCode = "EXAMPLES_VERSION_MISMATCH"

	ErrCodePromptTemplateMissing ErrorCode = "PROMPT_TEMPLATE_MISSING"
	ErrCodePromptRenderFailed    ErrorCode = "PROMPT_RENDER_FAILED"

	ErrCodeGenerationRateLimited ErrorCode = "GENERATION_RATE_LIMITED"
	ErrCodeGenerationTimeout     ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeGenerationFailed      ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationEmpty       ErrorCode = "GENERATION_EMPTY"
	ErrCodeGenerationRefused     ErrorCode = "GENERATION_REFUSED"

	ErrCodeUnmappedSection         ErrorCode = "UNMAPPED_SECTION"
	ErrCodeIntegrationPathConflict ErrorCode = "INTEGRATION_PATH_CONFLICT"

	ErrCodeInvalidReportData ErrorCode = "INVALID_REPORT_DATA"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeBrokerTimeout     ErrorCode = "BROKER_TIMEOUT"
	ErrCodeBrokerRejected    ErrorCode = "BROKER_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is works against package sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata adds a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewExamplesUnavailableError reports a missing or unreadable example cache.
func NewExamplesUnavailableError(source string, err error) *StandardError {
	return newError(ErrCodeExamplesUnavailable, "Example cache unavailable",
		fmt.Sprintf("source: %s, error: %s", source, detailsOf(err)), false, err)
}

// NewExamplesVersionMismatchError reports a cache written by another training format.
func NewExamplesVersionMismatchError(expected, got string) *StandardError {
	return newError(ErrCodeExamplesVersionMismatch, "Example cache version mismatch",
		fmt.Sprintf("expected: %s, got: %s", expected, got), false, nil)
}

// NewPromptTemplateMissingError reports a section without a template file.
func NewPromptTemplateMissingError(section string, err error) *StandardError {
	return newError(ErrCodePromptTemplateMissing, "Prompt template not found",
		fmt.Sprintf("section: %s", section), false, err)
}

// NewPromptRenderFailedError reports a template that failed to parse or execute.
func NewPromptRenderFailedError(section string, err error) *StandardError {
	return newError(ErrCodePromptRenderFailed, "Prompt template rendering failed",
		fmt.Sprintf("section: %s, error: %s", section, detailsOf(err)), false, err)
}

// NewGenerationRateLimitedError is returned on HTTP 429.
func NewGenerationRateLimitedError(section string) *StandardError {
	return newError(ErrCodeGenerationRateLimited, "Generation service rate limited",
		fmt.Sprintf("section: %s", section), true, nil)
}

// NewGenerationTimeoutError is returned when the call exceeds its deadline.
func NewGenerationTimeoutError(section string, err error) *StandardError {
	return newError(ErrCodeGenerationTimeout, "Generation service timeout",
		fmt.Sprintf("section: %s, error: %s", section, detailsOf(err)), true, err)
}

// NewGenerationFailedError covers non-2xx statuses, transport and decode errors.
func NewGenerationFailedError(section string, err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Generation service error",
		fmt.Sprintf("section: %s, error: %s", section, detailsOf(err)), true, err)
}

func NewGenerationEmptyError(section string) *StandardError {
	return newError(ErrCodeGenerationEmpty, "Generation returned no usable text",
		fmt.Sprintf("section: %s", section), false, nil)
}

func NewGenerationRefusedError(section, phrase string) *StandardError {
	return newError(ErrCodeGenerationRefused, "Generation refused for lack of data",
		fmt.Sprintf("section: %s, phrase: %q", section, phrase), false, nil)
}

// NewUnmappedSectionError marks generated text with no integration path.
func NewUnmappedSectionError(section string, cause error) *StandardError {
	return newError(ErrCodeUnmappedSection, "Section has no integration path",
		fmt.Sprintf("section: %s", section), false, cause)
}

// NewIntegrationPathConflictError marks a path whose intermediate node is not a mapping.
func NewIntegrationPathConflictError(section, key string, cause error) *StandardError {
	return newError(ErrCodeIntegrationPathConflict, "Integration path blocked by a non-mapping value",
		fmt.Sprintf("section: %s, key: %s", section, key), false, cause)
}

// NewInvalidReportDataError is the only error that fails a worker job.
func NewInvalidReportDataError(details string) *StandardError {
	return newError(ErrCodeInvalidReportData, "Report data validation failed", details, false, nil)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", detailsOf(err), true, err)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, detailsOf(err)), true, err)
}

// NewBrokerUnavailableError covers refused or reset connections to the Zeebe gateway.
func NewBrokerUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerUnavailable, "Workflow broker unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, detailsOf(err)), true, err)
}

func NewBrokerTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerTimeout, "Workflow broker timeout",
		fmt.Sprintf("operation: %s, error: %s", operation, detailsOf(err)), true, err)
}

// NewBrokerRejectedError is a non-retryable rejection (not found, permission, duplicate).
func NewBrokerRejectedError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerRejected, "Workflow broker rejected the command",
		fmt.Sprintf("operation: %s, error: %s", operation, detailsOf(err)), false, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeGenerationFailed,
		ErrCodeBrokerUnavailable:
		return 3
	case ErrCodeGenerationTimeout, ErrCodeBrokerTimeout:
		return 2
	case ErrCodeGenerationRateLimited:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "EXAMPLES"):
		return "EXAMPLES"
	case strings.HasPrefix(codeStr, "PROMPT"):
		return "PROMPT"
	case strings.HasPrefix(codeStr, "GENERATION"):
		return "AI"
	case strings.Contains(codeStr, "SECTION") || strings.Contains(codeStr, "INTEGRATION"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.HasPrefix(codeStr, "BROKER"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
