package content

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad or missing descriptor field. It is a caller
// error: no retry, no fetch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type UpstreamKind string

const (
	UpstreamAuth      UpstreamKind = "auth"
	UpstreamRateLimit UpstreamKind = "rate_limit"
	UpstreamTransport UpstreamKind = "transport"
	UpstreamNotFound  UpstreamKind = "not_found"
)

// UpstreamError reports a platform API failure. It is recorded per source;
// aggregation continues.
type UpstreamError struct {
	Kind      UpstreamKind
	Platform  SourceType
	Message   string
	RateLimit *RateLimit
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error (%s): %s", e.Platform, e.Kind, e.Message)
}

// ConfigurationError reports missing adapter credentials or environment.
// It fails the specific source only.
type ConfigurationError struct {
	Platform SourceType
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s adapter is not configured: missing %s", e.Platform, e.Missing)
}
