package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UserID identifies an account owner on the ledger server.
type UserID struct {
	value string
}

// Credential is an opaque bearer token proving identity to the ledger server.
type Credential struct {
	value string
}

// Session is the identity established by a successful login.
type Session struct {
	UserID      UserID
	DisplayName string
	Credential  Credential
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// IsZero reports whether the id was never set.
func (id UserID) IsZero() bool {
	return id.value == ""
}

// NewCredential validates a bearer token.
func NewCredential(raw string) (Credential, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Credential{}, fmt.Errorf("%w: empty value", ErrInvalidCredential)
	}
	return Credential{value: trimmed}, nil
}

// String returns the raw token.
func (credential Credential) String() string {
	return credential.value
}

// IsZero reports whether the credential was never set.
func (credential Credential) IsZero() bool {
	return credential.value == ""
}

// NewSession validates the pieces returned by the authentication service.
func NewSession(rawUserID string, displayName string, rawCredential string) (Session, error) {
	userID, err := NewUserID(rawUserID)
	if err != nil {
		return Session{}, err
	}
	credential, err := NewCredential(rawCredential)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:      userID,
		DisplayName: strings.TrimSpace(displayName),
		Credential:  credential,
	}, nil
}

// Amount is a decimal money amount as reported by the ledger server.
type Amount struct {
	value decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(value decimal.Decimal) Amount {
	return Amount{value: value}
}

// AmountFromFloat converts a float amount received over the wire.
func AmountFromFloat(value float64) Amount {
	return Amount{value: decimal.NewFromFloat(value)}
}

// ParseAmount parses user-entered text. The sign is left to the server.
func ParseAmount(raw string) (Amount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Amount{}, ErrMissingAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, trimmed)
	}
	return Amount{value: value}, nil
}

// Decimal exposes the underlying value.
func (amount Amount) Decimal() decimal.Decimal {
	return amount.value
}

// Cmp compares two amounts numerically.
func (amount Amount) Cmp(other Amount) int {
	return amount.value.Cmp(other.value)
}

// Equal reports numeric equality.
func (amount Amount) Equal(other Amount) bool {
	return amount.value.Equal(other.value)
}

// Fixed2 renders the amount with exactly two decimals.
func (amount Amount) Fixed2() string {
	return amount.value.StringFixed(2)
}

// String returns the exact decimal representation.
func (amount Amount) String() string {
	return amount.value.String()
}

// Cents returns the amount in minor units, rounded half away from zero.
func (amount Amount) Cents() int64 {
	return amount.value.Shift(2).Round(0).IntPart()
}

// TransactionType distinguishes outgoing and incoming transfers.
type TransactionType string

const (
	TransactionSent     TransactionType = "SENT"
	TransactionReceived TransactionType = "RECEIVED"
)

// TransactionStatus is the server-side outcome of a transfer.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// ParseTransactionType validates a wire value.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(raw))) {
	case TransactionSent:
		return TransactionSent, nil
	case TransactionReceived:
		return TransactionReceived, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, raw)
}

// ParseTransactionStatus validates a wire value.
func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	switch TransactionStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusSuccess:
		return StatusSuccess, nil
	case StatusFailed:
		return StatusFailed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionStatus, raw)
}

// Transaction is a single immutable history line for the current user.
type Transaction struct {
	ID           int64
	Timestamp    time.Time
	Type         TransactionType
	Counterparty string
	Amount       Amount
	Status       TransactionStatus
	Description  string
}

// TransferDraft holds the raw transfer form fields.
type TransferDraft struct {
	ReceiverUsername string
	Amount           string
}

// TransferRequest is a draft that passed local checks.
type TransferRequest struct {
	ReceiverUsername string
	Amount           Amount
}

// Validate checks the fields that can be checked without the server.
func (draft TransferDraft) Validate() (TransferRequest, error) {
	receiver := strings.TrimSpace(draft.ReceiverUsername)
	if receiver == "" {
		return TransferRequest{}, WrapError(OperationTransfer, subjectDraft, codeMissingField, ErrMissingReceiver)
	}
	amount, err := ParseAmount(draft.Amount)
	if err != nil {
		code := codeInvalidAmount
		if errors.Is(err, ErrMissingAmount) {
			code = codeMissingField
		}
		return TransferRequest{}, WrapError(OperationTransfer, subjectDraft, code, err)
	}
	return TransferRequest{ReceiverUsername: receiver, Amount: amount}, nil
}
