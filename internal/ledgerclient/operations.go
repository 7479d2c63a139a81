package ledgerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
)

// TransferResult is the server-confirmed outcome of a transfer.
type TransferResult struct {
	NewBalance    ledger.Amount
	TransactionID int64
	Message       string
}

// User is an entry of the receiver directory.
type User struct {
	ID       string
	Username string
}

// FetchBalance returns the authoritative balance of the session user.
func (client *Client) FetchBalance(ctx context.Context) (ledger.Amount, error) {
	var response balanceResponse
	err := client.do(ctx, call{
		operation:     ledger.OperationFetchBalance,
		method:        http.MethodGet,
		path:          pathBalance,
		authenticated: true,
	}, &response)
	if err == nil && response.Balance == nil {
		err = malformed(ledger.OperationFetchBalance, "missing balance")
	}
	var balance ledger.Amount
	if err == nil {
		balance = ledger.NewAmount(*response.Balance)
	}
	ledger.LogOperation(ctx, client.logger, ledger.OperationLog{
		Operation: ledger.OperationFetchBalance,
		UserID:    client.currentUserID(),
		Amount:    balance,
		Error:     err,
	})
	return balance, err
}

// FetchHistory returns every transaction the server reports for userID, in server order.
func (client *Client) FetchHistory(ctx context.Context, userID ledger.UserID) ([]ledger.Transaction, error) {
	transactions, err := client.fetchHistory(ctx, userID)
	ledger.LogOperation(ctx, client.logger, ledger.OperationLog{
		Operation: ledger.OperationFetchHistory,
		UserID:    userID,
		Error:     err,
	})
	return transactions, err
}

func (client *Client) fetchHistory(ctx context.Context, userID ledger.UserID) ([]ledger.Transaction, error) {
	if userID.IsZero() {
		return nil, ledger.WrapError(ledger.OperationFetchHistory, errorSubjectInput, errorCodeMissing, ledger.ErrInvalidUserID)
	}
	var response historyResponse
	err := client.do(ctx, call{
		operation:     ledger.OperationFetchHistory,
		method:        http.MethodGet,
		path:          pathTransactions + url.PathEscape(userID.String()),
		authenticated: true,
	}, &response)
	if err != nil {
		return nil, err
	}
	transactions := make([]ledger.Transaction, 0, len(response.Transactions))
	for index, payload := range response.Transactions {
		transaction, err := payload.toTransaction()
		if err != nil {
			return nil, malformed(ledger.OperationFetchHistory, "transaction %d: %v", index, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

// SubmitTransfer asks the server to move amount to receiverUsername.
// Each submission carries a fresh Idempotency-Key.
func (client *Client) SubmitTransfer(ctx context.Context, receiverUsername string, amount ledger.Amount) (TransferResult, error) {
	var response transferResponse
	err := client.do(ctx, call{
		operation:     ledger.OperationSubmitTransfer,
		method:        http.MethodPost,
		path:          pathTransfer,
		body:          transferRequest{ReceiverUsername: receiverUsername, Amount: json.Number(amount.String())},
		authenticated: true,
		idempotent:    true,
	}, &response)
	if err == nil && response.NewBalance == nil {
		err = malformed(ledger.OperationSubmitTransfer, "missing new_balance")
	}
	var result TransferResult
	if err == nil {
		result = TransferResult{
			NewBalance:    ledger.NewAmount(*response.NewBalance),
			TransactionID: response.TransactionID,
			Message:       response.Message,
		}
	}
	ledger.LogOperation(ctx, client.logger, ledger.OperationLog{
		Operation: ledger.OperationSubmitTransfer,
		UserID:    client.currentUserID(),
		Receiver:  receiverUsername,
		Amount:    amount,
		Error:     err,
	})
	return result, err
}

// ListUsers returns the other users that can receive a transfer.
func (client *Client) ListUsers(ctx context.Context) ([]User, error) {
	var response usersResponse
	err := client.do(ctx, call{
		operation:     ledger.OperationListUsers,
		method:        http.MethodGet,
		path:          pathUsers,
		authenticated: true,
	}, &response)
	ledger.LogOperation(ctx, client.logger, ledger.OperationLog{
		Operation: ledger.OperationListUsers,
		UserID:    client.currentUserID(),
		Error:     err,
	})
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(response.Users))
	for _, payload := range response.Users {
		users = append(users, User{ID: string(payload.ID), Username: payload.Username})
	}
	return users, nil
}
