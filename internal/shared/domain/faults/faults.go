// Package faults is the shared failure vocabulary of the worker.
//
// Every component reports failures through these types so that the
// dispatch classifier stays the single authority on retry vs. discard.
// Storage faults are classified by driver code, never by message text.
package faults

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrParticipantNotFound is returned when a (widget, user) key has no row.
var ErrParticipantNotFound = errors.New("participant not found")

// ValidationError reports the first missing required input, detected
// before any I/O is attempted.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// MissingField builds a ValidationError for the named field.
func MissingField(name string) *ValidationError {
	return &ValidationError{Field: name}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError wraps a database connectivity or query fault. Callers do
// not decide retryability here; the dispatch classifier does, via
// Transient.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorage wraps err with the failing operation name.
func NewStorage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// Transient reports whether the underlying fault is connection-class:
// refused, reset, timed out, broken pipe, or a lost server connection.
// Classification uses driver/syscall codes, not error message text.
func (e *StorageError) Transient() bool {
	return TransientStorage(e.Err)
}

// Connection-class SQLSTATE codes. Class 08 is "connection exception";
// 57P0x are server shutdown/crash states that sever the connection.
var transientPgCodes = map[string]bool{
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
}

// TransientStorage reports whether err is a connection-class storage
// fault that is safe to retry.
func TransientStorage(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return true
		}
		return transientPgCodes[pgErr.Code]
	}

	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 is unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// Platform error codes the classifier recognizes. These are the wire
// codes of the upstream social platform.
const (
	CodeRateLimitExceeded = 88
	CodeInvalidToken      = 89
	CodeOverCapacity      = 130
	CodeInternalError     = 131
	CodeCannotMessage     = 150
	CodeDuplicateStatus   = 187
)

// PlatformIssue is one {code, message} element of a structured platform
// error response.
type PlatformIssue struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PlatformError is the ordered error list a platform returns. Only the
// first element determines classification; later elements are
// informational.
type PlatformError []PlatformIssue

func (e PlatformError) Error() string {
	first, ok := e.First()
	if !ok {
		return "platform error (empty)"
	}
	return fmt.Sprintf("platform error %d: %s", first.Code, first.Message)
}

// First returns the classifying element, if any.
func (e PlatformError) First() (PlatformIssue, bool) {
	if len(e) == 0 {
		return PlatformIssue{}, false
	}
	return e[0], true
}

// TransportError is a network or HTTP fault with no structured platform
// body. Status is zero when the failure happened below HTTP.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
