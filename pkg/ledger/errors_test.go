package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

const (
	operationName    = "ledger"
	subjectName      = "entry"
	codeName         = "invalid"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestKindOf(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "nil", err: nil, want: FailureNone},
		{name: "missing receiver", err: ErrMissingReceiver, want: FailureValidation},
		{name: "wrapped invalid amount", err: WrapError("transfer", "draft", "invalid_amount", ErrInvalidAmount), want: FailureValidation},
		{name: "unauthorized", err: fmt.Errorf("fetch: %w", ErrUnauthorized), want: FailureUnauthorized},
		{name: "unauthenticated", err: ErrUnauthenticated, want: FailureUnauthorized},
		{name: "network", err: fmt.Errorf("%w: dial tcp", ErrNetwork), want: FailureNetwork},
		{name: "server message", err: NewServerMessageError(ErrServer, http.StatusInternalServerError, "boom"), want: FailureServer},
		{name: "rejected transfer", err: NewServerMessageError(ErrValidation, http.StatusBadRequest, "Insufficient balance"), want: FailureValidation},
		{name: "unclassified", err: errors.New("mystery"), want: FailureServer},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := KindOf(testCase.err); got != testCase.want {
				test.Fatalf("expected %s, got %s", testCase.want, got)
			}
		})
	}
}

func TestUserMessage(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "server message verbatim", err: NewServerMessageError(ErrValidation, http.StatusBadRequest, "Insufficient balance"), want: "Insufficient balance"},
		{name: "server without message", err: NewServerMessageError(ErrServer, http.StatusBadGateway, ""), want: messageServer},
		{name: "network", err: fmt.Errorf("%w: connection refused", ErrNetwork), want: messageNetwork},
		{name: "missing fields", err: WrapError("transfer", "draft", "missing_field", ErrMissingReceiver), want: messageMissingFields},
		{name: "invalid amount", err: fmt.Errorf("%w: %q", ErrInvalidAmount, "abc"), want: messageInvalidAmount},
		{name: "unauthorized", err: ErrUnauthorized, want: messageUnauthorized},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := UserMessage(testCase.err); got != testCase.want {
				test.Fatalf("expected %q, got %q", testCase.want, got)
			}
		})
	}
}

func TestServerMessageErrorUnwrap(test *testing.T) {
	test.Parallel()
	err := fmt.Errorf("submit: %w", NewServerMessageError(ErrValidation, http.StatusNotFound, "Receiver not found"))
	var serverError ServerMessageError
	if !errors.As(err, &serverError) {
		test.Fatalf("expected ServerMessageError in chain")
	}
	if serverError.StatusCode() != http.StatusNotFound || serverError.Message() != "Receiver not found" {
		test.Fatalf("unexpected server error: %+v", serverError)
	}
	if !errors.Is(err, ErrValidation) {
		test.Fatalf("expected validation kind")
	}
}
