// Package transfer validates transfer drafts, submits them, and reconciles the
// confirmed balance into the view model.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/walletctl/internal/ledgerclient"
	"github.com/MarkoPoloResearchLab/walletctl/internal/viewmodel"
	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
)

const successMessageFormat = "Transfer successful! New balance: $%s"

// Submitter performs the remote transfer call.
type Submitter interface {
	SubmitTransfer(ctx context.Context, receiverUsername string, amount ledger.Amount) (ledgerclient.TransferResult, error)
}

// Refresher reloads balance and history after a confirmed transfer.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Authenticator reports whether results may still be applied.
type Authenticator interface {
	IsAuthenticated() bool
}

// Status is the high-level outcome of a transfer attempt.
type Status int

const (
	StatusSucceeded Status = iota
	StatusRejected
	StatusLoggedOut
)

// String returns a stable label for logs.
func (status Status) String() string {
	switch status {
	case StatusSucceeded:
		return "succeeded"
	case StatusRejected:
		return "rejected"
	case StatusLoggedOut:
		return "logged_out"
	}
	return "unknown"
}

// Outcome is what the transfer form needs to update itself. ClearForm is set
// only on success; Message is empty when the user was logged out. RefreshErr
// reports a failed follow-up refresh and never changes Status.
type Outcome struct {
	Status        Status
	NewBalance    ledger.Amount
	TransactionID int64
	Message       string
	ClearForm     bool
	Err           error
	RefreshErr    error
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithOperationLogger reports every attempt.
func WithOperationLogger(logger ledger.OperationLogger) Option {
	return func(workflow *Workflow) {
		workflow.logger = logger
	}
}

// WithAuthenticator discards confirmed results once the session has ended.
func WithAuthenticator(authenticator Authenticator) Option {
	return func(workflow *Workflow) {
		workflow.authenticator = authenticator
	}
}

// Workflow runs transfers. It never retries; the user resubmits.
type Workflow struct {
	submitter     Submitter
	model         *viewmodel.Model
	sequencer     *viewmodel.Sequencer
	refresher     Refresher
	authenticator Authenticator
	logger        ledger.OperationLogger
}

// NewWorkflow wires a Workflow. model and sequencer must be the ones the refresh scheduler uses.
func NewWorkflow(submitter Submitter, model *viewmodel.Model, sequencer *viewmodel.Sequencer, refresher Refresher, options ...Option) (*Workflow, error) {
	if submitter == nil {
		return nil, errors.New("transfer submitter is nil")
	}
	if model == nil || sequencer == nil {
		return nil, errors.New("view model is nil")
	}
	workflow := &Workflow{
		submitter: submitter,
		model:     model,
		sequencer: sequencer,
		refresher: refresher,
	}
	for _, option := range options {
		if option != nil {
			option(workflow)
		}
	}
	return workflow, nil
}

// Transfer validates draft, submits it, and on success applies the confirmed
// balance before requesting a history refresh.
func (workflow *Workflow) Transfer(ctx context.Context, draft ledger.TransferDraft) Outcome {
	request, err := draft.Validate()
	if err != nil {
		workflow.log(ctx, draft.ReceiverUsername, ledger.Amount{}, 0, err)
		return Outcome{Status: StatusRejected, Message: ledger.UserMessage(err), Err: err}
	}

	result, err := workflow.submitter.SubmitTransfer(ctx, request.ReceiverUsername, request.Amount)
	if err != nil {
		workflow.log(ctx, request.ReceiverUsername, request.Amount, 0, err)
		if ledger.KindOf(err) == ledger.FailureUnauthorized {
			return Outcome{Status: StatusLoggedOut, Err: err}
		}
		return Outcome{Status: StatusRejected, Message: ledger.UserMessage(err), Err: err}
	}

	if workflow.authenticator != nil && !workflow.authenticator.IsAuthenticated() {
		workflow.log(ctx, request.ReceiverUsername, request.Amount, 0, ledger.ErrUnauthenticated)
		return Outcome{Status: StatusLoggedOut, Err: ledger.ErrUnauthenticated}
	}
	sequence := workflow.sequencer.Next()
	if err := workflow.model.ApplyBalance(sequence, result.NewBalance); err != nil {
		// Unreachable while every apply draws from the shared sequencer.
		workflow.log(ctx, request.ReceiverUsername, request.Amount, sequence, err)
		return Outcome{Status: StatusRejected, Message: ledger.UserMessage(err), Err: err}
	}
	workflow.log(ctx, request.ReceiverUsername, request.Amount, sequence, nil)
	var refreshErr error
	if workflow.refresher != nil {
		refreshErr = workflow.refresher.Refresh(ctx)
	}
	return Outcome{
		Status:        StatusSucceeded,
		NewBalance:    result.NewBalance,
		TransactionID: result.TransactionID,
		Message:       fmt.Sprintf(successMessageFormat, result.NewBalance.Fixed2()),
		ClearForm:     true,
		RefreshErr:    refreshErr,
	}
}

func (workflow *Workflow) log(ctx context.Context, receiver string, amount ledger.Amount, sequence int64, err error) {
	ledger.LogOperation(ctx, workflow.logger, ledger.OperationLog{
		Operation: ledger.OperationTransfer,
		Receiver:  receiver,
		Amount:    amount,
		Sequence:  sequence,
		Error:     err,
	})
}
