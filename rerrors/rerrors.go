// Package rerrors collects the error taxonomy this library reports to
// callers, as types callers can match on with errors.As. Service clients
// and servers report write failures as WriteError and blocking receives on
// a client as ReadError; other errors, such as context cancellation errors
// and the action package's goal-table errors, are returned as they are.
package rerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// CreateError reports that creating a DDS participant, topic, reader, or
// writer failed. Fatal to the attempted entity only.
type CreateError struct {
	Entity string
	Cause  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create %s failed: %v", e.Entity, e.Cause)
}
func (e *CreateError) Unwrap() error { return e.Cause }

// WriteError reports a failed write. WouldBlock marks a transient,
// retryable condition. WriteError does not carry the payload that failed to
// write.
type WriteError struct {
	WouldBlock bool
	Cause      error
}

func (e *WriteError) Error() string {
	if e.WouldBlock {
		return "write would block"
	}
	return fmt.Sprintf("write failed: %v", e.Cause)
}
func (e *WriteError) Unwrap() error { return e.Cause }

// ReadError reports a failed read. Empty marks the transient, expected
// "nothing to take" condition; any other value is a fatal
// (de)serialization error.
type ReadError struct {
	Empty bool
	Cause error
}

func (e *ReadError) Error() string {
	if e.Empty {
		return "no sample available"
	}
	return fmt.Sprintf("read failed: %v", e.Cause)
}
func (e *ReadError) Unwrap() error { return e.Cause }

// CallServiceError is the sum type returned by async_call-style helpers:
// it wraps either a WriteError (the request never made it out) or a
// ReadError (the request was sent but the response never arrived or failed
// to deserialize).
type CallServiceError struct {
	Write *WriteError
	Read  *ReadError
}

func (e *CallServiceError) Error() string {
	switch {
	case e.Write != nil:
		return "call service: " + e.Write.Error()
	case e.Read != nil:
		return "call service: " + e.Read.Error()
	default:
		return "call service: unknown error"
	}
}

func (e *CallServiceError) Unwrap() error {
	switch {
	case e.Write != nil:
		return e.Write
	case e.Read != nil:
		return e.Read
	default:
		return nil
	}
}

// FromWrite wraps a WriteError as a CallServiceError.
func FromWrite(err *WriteError) *CallServiceError { return &CallServiceError{Write: err} }

// FromRead wraps a ReadError as a CallServiceError.
func FromRead(err *ReadError) *CallServiceError { return &CallServiceError{Read: err} }

// ConversionError reports a time, UUID, or type conversion that is out of
// range. Reported to the caller, never panicked on library inputs; the
// library panics internally only where invariants make failure impossible
// (e.g. the builtin_interfaces saturation helpers).
type ConversionError struct {
	What  string
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error (%s): %v", e.What, e.Cause)
}
func (e *ConversionError) Unwrap() error { return e.Cause }

// Wrap attaches additional context to err using the same wrapping
// convention the rest of this codebase uses for non-typed errors.
func Wrap(err error, context string) error {
	return errors.Wrap(err, context)
}
