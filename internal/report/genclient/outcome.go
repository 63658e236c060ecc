// internal/report/genclient/outcome.go
package genclient

// Status classifies one generation attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusEmpty
	StatusRefused
	StatusTransient
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusRefused:
		return "refused"
	case StatusTransient:
		return "transient_error"
	case StatusFatal:
		return "fatal_error"
	}
	return "unknown"
}

// Kind names the cause of a transient or fatal outcome.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindTimeout     Kind = "timeout"
	KindHTTPStatus  Kind = "http_status"
	KindTransport   Kind = "transport"
	KindDecode      Kind = "decode"
	KindDisabled    Kind = "disabled"
)

// Outcome is the classified result of Generate. Err carries a StandardError for
// every status but success.
type Outcome struct {
	Status Status
	Text   string
	Kind   Kind
	Err    error
	Cached bool
}

func (o Outcome) Accepted() bool { return o.Status == StatusSuccess }

// Label is the metric label for the outcome.
func (o Outcome) Label() string {
	if o.Kind != "" {
		return string(o.Kind)
	}
	return o.Status.String()
}
