package ledger

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by every component that talks to the ledger server.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNetwork         = errors.New("network unreachable")
	ErrServer          = errors.New("server error")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Local input errors. All of them are validation failures.
var (
	ErrMissingReceiver          = fmt.Errorf("%w: receiver is required", ErrValidation)
	ErrMissingAmount            = fmt.Errorf("%w: amount is required", ErrValidation)
	ErrMissingCredentials       = fmt.Errorf("%w: username and password are required", ErrValidation)
	ErrInvalidAmount            = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidUserID            = fmt.Errorf("%w: invalid user id", ErrValidation)
	ErrInvalidCredential        = fmt.Errorf("%w: invalid credential", ErrValidation)
	ErrInvalidSortKey           = fmt.Errorf("%w: invalid sort key", ErrValidation)
	ErrInvalidSortDirection     = fmt.Errorf("%w: invalid sort direction", ErrValidation)
	ErrInvalidTransactionType   = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidTransactionStatus = fmt.Errorf("%w: invalid transaction status", ErrValidation)
)

const (
	messageMissingFields = "Please fill in all fields"
	messageInvalidAmount = "invalid amount"
	messageNetwork       = "Network error. Please try again."
	messageServer        = "Something went wrong. Please try again later."
	messageUnauthorized  = "Session expired. Please log in again."
)

// FailureKind classifies an error into the client taxonomy.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureUnauthorized
	FailureNetwork
	FailureServer
)

// String returns a stable label for logs.
func (kind FailureKind) String() string {
	switch kind {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureNetwork:
		return "network"
	case FailureServer:
		return "server"
	}
	return "unknown"
}

// KindOf maps err onto the taxonomy. A missing session counts as unauthorized.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrUnauthenticated):
		return FailureUnauthorized
	case errors.Is(err, ErrValidation):
		return FailureValidation
	case errors.Is(err, ErrNetwork):
		return FailureNetwork
	default:
		return FailureServer
	}
}

// ServerMessageError carries the message a non-success response supplied.
type ServerMessageError struct {
	kind       error
	statusCode int
	message    string
}

// NewServerMessageError builds a failure of the given kind (ErrValidation or ErrServer).
func NewServerMessageError(kind error, statusCode int, message string) ServerMessageError {
	return ServerMessageError{kind: kind, statusCode: statusCode, message: message}
}

// Error returns the formatted error message.
func (serverError ServerMessageError) Error() string {
	if serverError.message == "" {
		return fmt.Sprintf("%v: status %d", serverError.kind, serverError.statusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", serverError.kind, serverError.statusCode, serverError.message)
}

// Unwrap returns the taxonomy sentinel.
func (serverError ServerMessageError) Unwrap() error {
	return serverError.kind
}

// StatusCode returns the HTTP status of the failed response.
func (serverError ServerMessageError) StatusCode() int {
	return serverError.statusCode
}

// Message returns the server-provided text, possibly empty.
func (serverError ServerMessageError) Message() string {
	return serverError.message
}

// UserMessage returns the text to surface at the call site: the server message
// verbatim when there is one, otherwise a fallback for the failure kind.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var serverError ServerMessageError
	if errors.As(err, &serverError) && serverError.message != "" {
		return serverError.message
	}
	switch {
	case errors.Is(err, ErrMissingReceiver), errors.Is(err, ErrMissingAmount), errors.Is(err, ErrMissingCredentials):
		return messageMissingFields
	case errors.Is(err, ErrInvalidAmount):
		return messageInvalidAmount
	}
	switch KindOf(err) {
	case FailureUnauthorized:
		return messageUnauthorized
	case FailureNetwork:
		return messageNetwork
	case FailureValidation:
		return messageInvalidInput(err)
	}
	return messageServer
}

func messageInvalidInput(err error) string {
	var operationError OperationError
	if errors.As(err, &operationError) {
		return operationError.err.Error()
	}
	return err.Error()
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
