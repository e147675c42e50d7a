package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the HTTP layer can pick a status code and
// clients can decide whether a retry is worthwhile.
type Kind string

const (
	KindValidation                Kind = "validation_error"
	KindConfiguration             Kind = "configuration_error"
	KindUpstreamRejected          Kind = "upstream_rejected"
	KindUpstreamUnavailable       Kind = "upstream_unavailable"
	KindUpstreamContractViolation Kind = "upstream_contract_violation"
	KindContentPolicyViolation    Kind = "content_policy_violation"
	KindInternal                  Kind = "internal_error"
)

var (
	ErrValidation                = &Error{Kind: KindValidation}
	ErrConfiguration             = &Error{Kind: KindConfiguration}
	ErrUpstreamRejected          = &Error{Kind: KindUpstreamRejected}
	ErrUpstreamUnavailable       = &Error{Kind: KindUpstreamUnavailable}
	ErrUpstreamContractViolation = &Error{Kind: KindUpstreamContractViolation}
	ErrContentPolicyViolation    = &Error{Kind: KindContentPolicyViolation}
)

// Error carries a Kind together with a caller-facing message. Upstream and
// Status are set when the failure originated from a third-party API.
type Error struct {
	Kind     Kind
	Message  string
	Upstream string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Upstream != "" {
		msg = e.Upstream + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so the package-level sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether a client may retry the call that produced e.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindUpstreamUnavailable
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Configurationf builds a KindConfiguration error.
func Configurationf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Upstream builds an error attributed to a named upstream API.
func Upstream(kind Kind, upstream string, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Upstream: upstream, Status: status, Message: message, Err: cause}
}
