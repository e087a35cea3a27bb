package connector

import (
	"errors"
	"fmt"
)

// Kind classifies a query failure. The connector raises the most specific
// kind it can determine; callers must never widen a kind to a generic one.
type Kind string

const (
	// KindInput marks missing or invalid identifiers and malformed query
	// syntax caught before any network call. Caller-fixable, never retried.
	KindInput Kind = "input"

	// KindInstanceNotFound marks a reference to an instance that does not
	// exist in configuration.
	KindInstanceNotFound Kind = "instance_not_found"

	// KindInstanceInactive marks a query against an instance whose is_active
	// flag is false. Raised before any network attempt.
	KindInstanceInactive Kind = "instance_inactive"

	// KindRateLimited marks a call rejected by the instance's rate policy.
	KindRateLimited Kind = "rate_limited"

	// KindAuthentication marks HTTP 401/403, or a 2xx response whose body is
	// markup instead of structured data (stale credentials produce login
	// pages with HTTP 200 on several backends).
	KindAuthentication Kind = "authentication"

	// KindMalformed marks a structured-content-type response that fails to
	// parse as the expected format.
	KindMalformed Kind = "malformed_response"

	// KindTransport marks DNS/connect/TLS/timeout failures.
	KindTransport Kind = "transport"

	// KindUpstream marks a well-formed error returned by the external system
	// itself (non-2xx with a parseable body).
	KindUpstream Kind = "upstream"
)

// QueryError is a classified query failure. Detail carries the status code
// and a short body excerpt where available so operators can distinguish bad
// credentials from a disabled API.
type QueryError struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewError constructs a QueryError with a formatted message.
func NewError(kind Kind, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError constructs a QueryError wrapping an underlying cause.
func WrapError(kind Kind, err error, format string, args ...any) *QueryError {
	return &QueryError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// report KindTransport so no failure is ever silently dropped as success.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindTransport
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
